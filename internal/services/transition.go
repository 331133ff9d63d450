package services

import (
	"context"
	"log"

	"github.com/cargoflow/cargoflow-backend/internal/models"
)

// Broadcaster fans a booking update out to every live connection.
type Broadcaster interface {
	BroadcastBookingUpdate(booking *models.Booking)
}

// TransitionService is the single mutation path for booking status. All
// writes to Status and UpdatedAt go through ApplyTransition.
type TransitionService struct {
	store Store
	hub   Broadcaster
}

func NewTransitionService(store Store, hub Broadcaster) *TransitionService {
	return &TransitionService{store: store, hub: hub}
}

// ApplyTransition loads the booking, checks the actor may see it, validates
// the requested edge against the current status and persists the change
// atomically. The broadcast happens strictly after the durable write; a
// storage failure publishes nothing.
func (s *TransitionService) ApplyTransition(ctx context.Context, bookingID uint, actor *models.User, requested models.BookingStatus) (*models.Booking, error) {
	updated, err := s.store.UpdateBooking(ctx, bookingID, func(b *models.Booking) error {
		// A customer probing someone else's booking gets the same answer
		// as a missing one.
		if actor.Role != models.RoleDriver && b.UserID != actor.ID {
			return ErrNotFound
		}
		if err := models.ValidateTransition(b.Status, requested, actor.Role); err != nil {
			return err
		}
		b.Status = requested
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastBookingUpdate(updated)

	if RedisClient != nil {
		if err := PublishBookingUpdate(ctx, updated); err != nil {
			log.Printf("Failed to publish booking update for booking %d: %v", updated.ID, err)
		}
	}

	return updated, nil
}
