package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wastecollect-backend/internal/middleware"

	"github.com/gorilla/websocket"
)

const testSecret = "ws-secret"

func dial(t *testing.T, server *httptest.Server, userID, role string) *websocket.Conn {
	t.Helper()
	token, err := middleware.IssueToken(testSecret, middleware.UserClaims{UserID: userID, Role: role}, time.Now())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitConnected(t *testing.T, hub *Hub, userID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !hub.IsUserConnected(userID) {
		if time.Now().After(deadline) {
			t.Fatalf("%s never registered", userID)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg map[string]interface{}
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	return msg
}

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	hub := NewHub()
	go hub.Run()
	server := httptest.NewServer(HandleWebSocket(hub, testSecret))
	t.Cleanup(server.Close)
	return hub, server
}

func TestHubDeliversToUserAndRole(t *testing.T) {
	hub, server := newTestServer(t)

	collector := dial(t, server, "collector-1", "collector")
	admin := dial(t, server, "admin-1", "admin")
	waitConnected(t, hub, "collector-1")
	waitConnected(t, hub, "admin-1")

	if got := hub.GetClientCount(); got != 2 {
		t.Fatalf("client count = %d, want 2", got)
	}

	hub.BroadcastToUser("collector-1", map[string]string{"type": "route_assigned"})
	if msg := readJSON(t, collector); msg["type"] != "route_assigned" {
		t.Fatalf("collector got %v", msg)
	}

	hub.BroadcastToRole("admin", map[string]string{"type": "route_completed"})
	if msg := readJSON(t, admin); msg["type"] != "route_completed" {
		t.Fatalf("admin got %v", msg)
	}
}

func TestHubRejectsBadToken(t *testing.T) {
	_, server := newTestServer(t)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=bogus"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != 401 {
		t.Fatalf("response = %+v, want 401", resp)
	}
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	hub, server := newTestServer(t)

	conn := dial(t, server, "collector-1", "collector")
	waitConnected(t, hub, "collector-1")
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.IsUserConnected("collector-1") {
		if time.Now().After(deadline) {
			t.Fatalf("client still registered after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBroadcastToUnknownUserIsDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	// Must not block or panic without a connection
	hub.BroadcastToUser("nobody", map[string]string{"type": "noop"})
	hub.BroadcastToRole("admin", map[string]string{"type": "noop"})
	if hub.GetClientCount() != 0 {
		t.Fatalf("unexpected clients")
	}
}
