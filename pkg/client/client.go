// Package client is a Go consumer of the booking API. It keeps a local view
// of the booking list consistent with server state under two sources of
// truth: direct mutation responses and asynchronous broadcast events.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cargoflow/cargoflow-backend/internal/models"
	"github.com/gorilla/websocket"
)

// APIError carries the server's error payload for a failed request.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client talks to the booking API and mirrors the caller's booking list.
type Client struct {
	baseURL string
	httpc   *http.Client
	token   string

	mu       sync.Mutex
	bookings []models.Booking
	own      map[uint]bool // bookings this client mutated itself

	// OnLocation, if set, receives every LOCATION_UPDATE sample.
	OnLocation func(lat, lng float64)
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 10 * time.Second},
		own:     make(map[uint]bool),
	}
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Register creates an account and stores the returned session token.
func (c *Client) Register(ctx context.Context, username, password string) error {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/register",
		map[string]string{"username": username, "password": password}, &resp)
	if err != nil {
		return err
	}
	c.token = resp.Token
	return nil
}

// Login authenticates and stores the returned session token.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login",
		map[string]string{"username": username, "password": password}, &resp)
	if err != nil {
		return err
	}
	c.token = resp.Token
	return nil
}

// SelectRole picks the caller's role. The server reissues the token with the
// new role claim, so the stored token is replaced.
func (c *Client) SelectRole(ctx context.Context, role models.UserRole) error {
	var resp authResponse
	err := c.do(ctx, http.MethodPatch, "/api/user/role",
		map[string]string{"role": string(role)}, &resp)
	if err != nil {
		return err
	}
	c.token = resp.Token
	return nil
}

// CreateBookingParams are the trip descriptor fields of a new booking.
type CreateBookingParams struct {
	VehicleType     string `json:"vehicleType"`
	PickupLocation  string `json:"pickupLocation"`
	DropoffLocation string `json:"dropoffLocation"`
	PickupCoords    string `json:"pickupCoords"`
	DropoffCoords   string `json:"dropoffCoords"`
	CargoType       string `json:"cargoType"`
	CargoWeight     int    `json:"cargoWeight"`
}

// CreateBooking creates a booking and prepends it to the local list.
func (c *Client) CreateBooking(ctx context.Context, params CreateBookingParams) (*models.Booking, error) {
	var booking models.Booking
	if err := c.do(ctx, http.MethodPost, "/api/bookings", params, &booking); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.bookings = append([]models.Booking{booking}, c.bookings...)
	c.mu.Unlock()

	return &booking, nil
}

// Refresh replaces the local list with the server's authoritative one.
func (c *Client) Refresh(ctx context.Context) error {
	var bookings []models.Booking
	if err := c.do(ctx, http.MethodGet, "/api/bookings", nil, &bookings); err != nil {
		return err
	}

	c.mu.Lock()
	c.bookings = bookings
	c.mu.Unlock()

	return nil
}

// Bookings returns a copy of the local booking list.
func (c *Client) Bookings() []models.Booking {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.Booking, len(c.bookings))
	copy(out, c.bookings)
	return out
}

// Booking returns the local copy of one booking.
func (c *Client) Booking(id uint) (models.Booking, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, b := range c.bookings {
		if b.ID == id {
			return b, true
		}
	}
	return models.Booking{}, false
}

// UpdateStatus requests a transition. The local entry flips to the requested
// status immediately; a success reconciles it with the server's booking, a
// rejection rolls it back to the pre-request snapshot.
func (c *Client) UpdateStatus(ctx context.Context, id uint, status models.BookingStatus) (*models.Booking, error) {
	c.mu.Lock()
	var prev models.BookingStatus
	var tracked bool
	for i := range c.bookings {
		if c.bookings[i].ID == id {
			prev = c.bookings[i].Status
			c.bookings[i].Status = status
			tracked = true
			break
		}
	}
	c.own[id] = true
	c.mu.Unlock()

	var updated models.Booking
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/bookings/%d/status", id),
		map[string]string{"status": string(status)}, &updated)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if tracked {
			for i := range c.bookings {
				if c.bookings[i].ID == id {
					c.bookings[i].Status = prev
					break
				}
			}
		}
		delete(c.own, id)
		return nil, err
	}

	for i := range c.bookings {
		if c.bookings[i].ID == id {
			c.bookings[i] = updated
			break
		}
	}
	return &updated, nil
}

// wsEnvelope covers every server-to-client message shape.
type wsEnvelope struct {
	Type    string          `json:"type"`
	Booking *models.Booking `json:"booking,omitempty"`
	Data    struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"data,omitempty"`
}

// Listen opens the real-time connection and consumes broadcast events until
// the connection drops or ctx is cancelled. A status event for a booking
// this client did not mutate itself triggers a full list refresh; patching
// single fields would let partial and full views drift.
func (c *Client) Listen(ctx context.Context) error {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/api/ws?token=" + c.token

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		var env wsEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			continue
		}

		switch env.Type {
		case "BOOKING_STATUS_UPDATED":
			if env.Booking == nil {
				continue
			}
			c.mu.Lock()
			mine := c.own[env.Booking.ID]
			delete(c.own, env.Booking.ID)
			c.mu.Unlock()
			if !mine {
				if err := c.Refresh(ctx); err != nil {
					return err
				}
			}
		case "LOCATION_UPDATE":
			if c.OnLocation != nil {
				c.OnLocation(env.Data.Lat, env.Data.Lng)
			}
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		if payload.Error == "" {
			payload.Error = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: payload.Error}
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
