package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/cargoflow/cargoflow-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned for records that are absent or not visible to the
// caller. Handlers map it to a 404 without distinguishing the two cases.
var ErrNotFound = errors.New("record not found")

// Store is the persistence contract over users and bookings. The GORM
// implementation backs production; the memory implementation mirrors the
// platform's original in-process store and backs tests.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error

	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id uint) (*models.Booking, error)
	// ListBookings returns the bookings visible to the actor, newest first.
	// Customers see their own bookings; drivers see all of them.
	ListBookings(ctx context.Context, actor *models.User) ([]models.Booking, error)
	// UpdateBooking runs mutate against the current row under a per-booking
	// lock and persists the result. Concurrent callers serialize here.
	UpdateBooking(ctx context.Context, id uint, mutate func(*models.Booking) error) (*models.Booking, error)
	HasInTransit(ctx context.Context) (bool, error)
}

// GormStore is the PostgreSQL-backed Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *GormStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) SaveUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Save(user).Error
}

func (s *GormStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	return s.db.WithContext(ctx).Create(booking).Error
}

func (s *GormStore) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := s.db.WithContext(ctx).First(&booking, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (s *GormStore) ListBookings(ctx context.Context, actor *models.User) ([]models.Booking, error) {
	var bookings []models.Booking
	q := s.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if actor.Role != models.RoleDriver {
		q = q.Where("user_id = ?", actor.ID)
	}
	if err := q.Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (s *GormStore) UpdateBooking(ctx context.Context, id uint, mutate func(*models.Booking) error) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&booking, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := mutate(&booking); err != nil {
			return err
		}
		return tx.Save(&booking).Error
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (s *GormStore) HasInTransit(ctx context.Context) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Booking{}).
		Where("status = ?", models.BookingStatusInTransit).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MemoryStore keeps users and bookings in process memory.
type MemoryStore struct {
	mu            sync.Mutex
	users         map[uint]*models.User
	bookings      map[uint]*models.Booking
	nextUserID    uint
	nextBookingID uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[uint]*models.User),
		bookings:      make(map[uint]*models.Booking),
		nextUserID:    1,
		nextBookingID: 1,
	}
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username {
			return errors.New("username already taken")
		}
	}
	user.ID = s.nextUserID
	s.nextUserID++
	if user.Role == "" {
		user.Role = models.RoleUnset
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Username == username {
			cp := *user
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) SaveUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return ErrNotFound
	}
	user.UpdatedAt = time.Now()
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *MemoryStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	booking.ID = s.nextBookingID
	s.nextBookingID++
	if booking.Status == "" {
		booking.Status = models.BookingStatusPending
	}
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	cp := *booking
	s.bookings[booking.ID] = &cp
	return nil
}

func (s *MemoryStore) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	booking, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *booking
	return &cp, nil
}

func (s *MemoryStore) ListBookings(ctx context.Context, actor *models.User) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bookings []models.Booking
	for _, booking := range s.bookings {
		if actor.Role != models.RoleDriver && booking.UserID != actor.ID {
			continue
		}
		bookings = append(bookings, *booking)
	}
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].ID > bookings[j].ID
	})
	return bookings, nil
}

func (s *MemoryStore) UpdateBooking(ctx context.Context, id uint, mutate func(*models.Booking) error) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	booking, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *booking
	if err := mutate(&cp); err != nil {
		return nil, err
	}
	cp.UpdatedAt = time.Now()
	s.bookings[id] = &cp
	out := cp
	return &out, nil
}

func (s *MemoryStore) HasInTransit(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, booking := range s.bookings {
		if booking.Status == models.BookingStatusInTransit {
			return true, nil
		}
	}
	return false, nil
}
