package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/cargoflow/cargoflow-backend/internal/models"
	"github.com/gorilla/websocket"
)

type staticTransit bool

func (s staticTransit) HasInTransit(ctx context.Context) (bool, error) {
	return bool(s), nil
}

func newWSServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseUint(r.URL.Query().Get("id"), 10, 32)
		role := models.UserRole(r.URL.Query().Get("role"))
		HandleWebSocket(hub, w, r, uint(id), role)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server, id uint, role models.UserRole) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") +
		"/?id=" + strconv.FormatUint(uint64(id), 10) + "&role=" + string(role)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]json.RawMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(timeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(message, &env); err != nil {
		t.Fatalf("unmarshal %q: %v", message, err)
	}
	return env
}

func envType(t *testing.T, env map[string]json.RawMessage) string {
	t.Helper()
	var typ string
	if err := json.Unmarshal(env["type"], &typ); err != nil {
		t.Fatalf("message has no type: %v", err)
	}
	return typ
}

func TestHubConnectedAckAndGlobalFanout(t *testing.T) {
	hub := NewHub(SourceSimulated, nil)
	go hub.Run()
	srv := newWSServer(t, hub)

	customer := dialWS(t, srv, 1, models.RoleCustomer)
	driver := dialWS(t, srv, 2, models.RoleDriver)

	for conn, wantID := range map[*websocket.Conn]uint{customer: 1, driver: 2} {
		env := readEnvelope(t, conn, 2*time.Second)
		if typ := envType(t, env); typ != MessageTypeConnected {
			t.Fatalf("first message type = %s, want %s", typ, MessageTypeConnected)
		}
		var ack ConnectedMessage
		data, _ := json.Marshal(env)
		if err := json.Unmarshal(data, &ack); err != nil {
			t.Fatalf("decode ack: %v", err)
		}
		if ack.ClientID != wantID {
			t.Fatalf("ack clientId = %d, want %d", ack.ClientID, wantID)
		}
	}

	booking := &models.Booking{ID: 7, UserID: 1, Status: models.BookingStatusAccepted}
	hub.BroadcastBookingUpdate(booking)

	// Every connection gets exactly one copy, owner or not.
	for _, conn := range []*websocket.Conn{customer, driver} {
		env := readEnvelope(t, conn, 2*time.Second)
		if typ := envType(t, env); typ != MessageTypeBookingStatus {
			t.Fatalf("type = %s, want %s", typ, MessageTypeBookingStatus)
		}
		var got models.Booking
		if err := json.Unmarshal(env["booking"], &got); err != nil {
			t.Fatalf("decode booking: %v", err)
		}
		if got.ID != 7 || got.Status != models.BookingStatusAccepted {
			t.Fatalf("booking = %+v", got)
		}

		conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		if _, _, err := conn.ReadMessage(); err == nil {
			t.Fatal("received a second copy of the broadcast")
		}
	}
}

func TestHubSimulatedLocationWhileInTransit(t *testing.T) {
	hub := NewHub(SourceSimulated, staticTransit(true))
	hub.positionInterval = 50 * time.Millisecond
	go hub.Run()
	srv := newWSServer(t, hub)

	conn := dialWS(t, srv, 1, models.RoleCustomer)
	if typ := envType(t, readEnvelope(t, conn, 2*time.Second)); typ != MessageTypeConnected {
		t.Fatalf("expected %s first", MessageTypeConnected)
	}

	env := readEnvelope(t, conn, 2*time.Second)
	if typ := envType(t, env); typ != MessageTypeLocation {
		t.Fatalf("type = %s, want %s", typ, MessageTypeLocation)
	}
	var sample Position
	if err := json.Unmarshal(env["data"], &sample); err != nil {
		t.Fatalf("decode sample: %v", err)
	}
	if sample.Lat < simBaseLat-simJitter || sample.Lat > simBaseLat+simJitter {
		t.Fatalf("lat %f outside jitter window", sample.Lat)
	}
	if sample.Lng < simBaseLng-simJitter || sample.Lng > simBaseLng+simJitter {
		t.Fatalf("lng %f outside jitter window", sample.Lng)
	}
}

func TestHubNoLocationWithoutTransit(t *testing.T) {
	hub := NewHub(SourceSimulated, staticTransit(false))
	hub.positionInterval = 50 * time.Millisecond
	go hub.Run()
	srv := newWSServer(t, hub)

	conn := dialWS(t, srv, 1, models.RoleCustomer)
	if typ := envType(t, readEnvelope(t, conn, 2*time.Second)); typ != MessageTypeConnected {
		t.Fatalf("expected %s first", MessageTypeConnected)
	}

	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("received a location sample with nothing in transit")
	}
}

func TestHubDeviceRelay(t *testing.T) {
	hub := NewHub(SourceDevice, nil)
	go hub.Run()
	srv := newWSServer(t, hub)

	customer := dialWS(t, srv, 1, models.RoleCustomer)
	driver := dialWS(t, srv, 2, models.RoleDriver)
	for _, conn := range []*websocket.Conn{customer, driver} {
		if typ := envType(t, readEnvelope(t, conn, 2*time.Second)); typ != MessageTypeConnected {
			t.Fatalf("expected %s first", MessageTypeConnected)
		}
	}

	report := Position{Lat: 51.5074, Lng: -0.1278}
	data, _ := json.Marshal(report)
	if err := driver.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write report: %v", err)
	}

	env := readEnvelope(t, customer, 2*time.Second)
	if typ := envType(t, env); typ != MessageTypeLocation {
		t.Fatalf("type = %s, want %s", typ, MessageTypeLocation)
	}
	var got Position
	if err := json.Unmarshal(env["data"], &got); err != nil {
		t.Fatalf("decode sample: %v", err)
	}
	if got != report {
		t.Fatalf("relayed position = %+v, want %+v", got, report)
	}
}

func TestHubReleasesClosedConnections(t *testing.T) {
	hub := NewHub(SourceSimulated, nil)
	go hub.Run()
	srv := newWSServer(t, hub)

	conn := dialWS(t, srv, 1, models.RoleCustomer)
	if typ := envType(t, readEnvelope(t, conn, 2*time.Second)); typ != MessageTypeConnected {
		t.Fatalf("expected %s first", MessageTypeConnected)
	}

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetConnectedClients() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("hub still tracks %d clients after disconnect", hub.GetConnectedClients())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
