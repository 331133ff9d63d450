package services

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/cargoflow/cargoflow-backend/internal/models"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// PositionSource selects where LOCATION_UPDATE samples come from.
type PositionSource string

const (
	// SourceSimulated synthesizes samples around a fixed point while any
	// booking is in transit.
	SourceSimulated PositionSource = "simulated"
	// SourceDevice relays driver-reported coordinates verbatim.
	SourceDevice PositionSource = "device"
)

// ParsePositionSource maps a config value to a PositionSource, defaulting
// to simulated.
func ParsePositionSource(s string) PositionSource {
	if s == string(SourceDevice) {
		return SourceDevice
	}
	return SourceSimulated
}

// Synthetic samples jitter around lower Manhattan, matching the demo feed
// the tracking map was built against.
const (
	simBaseLat = 40.7128
	simBaseLng = -74.0060
	simJitter  = 0.01
)

// Server to client message types
const (
	MessageTypeConnected     = "CONNECTED"
	MessageTypeBookingStatus = "BOOKING_STATUS_UPDATED"
	MessageTypeLocation      = "LOCATION_UPDATE"
)

// ConnectedMessage acknowledges a new connection with its server-assigned
// identity.
type ConnectedMessage struct {
	Type     string          `json:"type"`
	ClientID uint            `json:"clientId"`
	Role     models.UserRole `json:"role"`
}

// BookingStatusMessage carries an updated booking to every connection.
type BookingStatusMessage struct {
	Type    string          `json:"type"`
	Booking *models.Booking `json:"booking"`
}

// LocationMessage carries a vehicle position sample.
type LocationMessage struct {
	Type string   `json:"type"`
	Data Position `json:"data"`
}

// Position is a raw coordinate pair, also the shape drivers report over the
// socket.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// TransitChecker reports whether any booking is currently in transit. The
// position loop only emits samples while one is.
type TransitChecker interface {
	HasInTransit(ctx context.Context) (bool, error)
}

// Client represents a WebSocket client
type Client struct {
	ID   uint
	Role models.UserRole
	Conn *websocket.Conn
	Send chan []byte
	Hub  *Hub
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	mutex      sync.RWMutex

	source           PositionSource
	transit          TransitChecker
	positionInterval time.Duration
}

// NewHub creates a new WebSocket hub
func NewHub(source PositionSource, transit TransitChecker) *Hub {
	return &Hub{
		clients:          make(map[*Client]bool),
		register:         make(chan *Client),
		unregister:       make(chan *Client),
		broadcast:        make(chan []byte),
		source:           source,
		transit:          transit,
		positionInterval: 2 * time.Second,
	}
}

// Run starts the hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("Client %d connected", client.ID)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mutex.Unlock()
			log.Printf("Client %d disconnected", client.ID)

		case message := <-h.broadcast:
			h.mutex.RLock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// Client's send channel is full, skip
					log.Printf("Warning: Could not send to client %d (channel full)", client.ID)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

// GetConnectedClients returns the number of connected clients
func (h *Hub) GetConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// BroadcastBookingUpdate fans a status transition out to every connection.
// Fan-out is global: the payload holds only the booking's public fields and
// there is no per-booking driver assignment to scope against.
func (h *Hub) BroadcastBookingUpdate(booking *models.Booking) {
	message := BookingStatusMessage{
		Type:    MessageTypeBookingStatus,
		Booking: booking,
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling booking update: %v", err)
		return
	}

	h.broadcast <- data
}

// BroadcastLocation sends a position sample to every connection.
func (h *Hub) BroadcastLocation(lat, lng float64) {
	message := LocationMessage{
		Type: MessageTypeLocation,
		Data: Position{Lat: lat, Lng: lng},
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling location update: %v", err)
		return
	}

	h.broadcast <- data
}

// RelayPosition handles a driver-reported coordinate pair. The sample is
// cached for later reads and, when the hub runs on the device source,
// relayed verbatim to every connection.
func (h *Hub) RelayPosition(driverID uint, lat, lng float64) {
	if RedisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := SetVehiclePosition(ctx, driverID, lat, lng); err != nil {
			log.Printf("Failed to cache position for driver %d: %v", driverID, err)
		}
	}

	if h.source == SourceDevice {
		h.BroadcastLocation(lat, lng)
	}
}

// HandleWebSocket handles WebSocket connections
func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request, userID uint, role models.UserRole) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		ID:   userID,
		Role: role,
		Conn: conn,
		Send: make(chan []byte, 256),
		Hub:  hub,
	}

	// Queue the acknowledgement before registering so no broadcast can
	// precede it.
	ack := ConnectedMessage{Type: MessageTypeConnected, ClientID: userID, Role: role}
	if data, err := json.Marshal(ack); err == nil {
		client.Send <- data
	}

	client.Hub.register <- client

	// Start goroutines for reading and writing
	go client.writePump()
	go client.readPump()
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		// Drivers report raw {lat, lng} position frames; anything else is
		// ignored.
		if c.Role != models.RoleDriver {
			continue
		}

		var report Position
		if err := json.Unmarshal(message, &report); err != nil {
			log.Printf("Error unmarshaling position report from client %d: %v", c.ID, err)
			continue
		}
		if report.Lat < -90 || report.Lat > 90 || report.Lng < -180 || report.Lng > 180 {
			continue
		}

		c.Hub.RelayPosition(c.ID, report.Lat, report.Lng)
	}
}

// writePump pumps messages from the hub to the websocket connection. It also
// owns this connection's position timer, so delivery stays FIFO per
// connection and closing the socket cancels the timer.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.Hub.positionInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}

		case <-ticker.C:
			if c.Hub.source != SourceSimulated {
				continue
			}
			if !c.Hub.anyInTransit() {
				continue
			}

			sample := LocationMessage{
				Type: MessageTypeLocation,
				Data: Position{
					Lat: simBaseLat + (rand.Float64()-0.5)*simJitter,
					Lng: simBaseLng + (rand.Float64()-0.5)*simJitter,
				},
			}
			data, err := json.Marshal(sample)
			if err != nil {
				continue
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}
		}
	}
}

func (h *Hub) anyInTransit() bool {
	if h.transit == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	inTransit, err := h.transit.HasInTransit(ctx)
	if err != nil {
		log.Printf("Failed to check in-transit bookings: %v", err)
		return false
	}
	return inTransit
}
