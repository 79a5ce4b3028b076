package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JamesClarke7283/StatelessChat/internal/models"
	"github.com/JamesClarke7283/StatelessChat/internal/services"
	"github.com/JamesClarke7283/StatelessChat/internal/token"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) (*httptest.Server, *services.RoomStore, *token.Service, *Hub) {
	t.Helper()
	return newTestServerTTL(t, 0)
}

func newTestServerTTL(t *testing.T, ttl time.Duration) (*httptest.Server, *services.RoomStore, *token.Service, *Hub) {
	t.Helper()
	store := services.NewRoomStore(nil)
	tokens := token.NewService(store, ttl)
	hub := NewHub(store)
	store.Subscribe(hub.Publish)
	go hub.Run()

	r := chi.NewRouter()
	tokenOf := func(r *http.Request) string { return r.URL.Query().Get("token") }
	r.Get("/ws/rooms/{id}", NewHandler(hub, tokens, tokenOf, nil).ServeWS)

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		hub.Stop()
		srv.Close()
	})
	return srv, store, tokens, hub
}

func dial(t *testing.T, srv *httptest.Server, roomID, tok string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/rooms/" + roomID + "?token=" + tok
	return websocket.DefaultDialer.Dial(url, nil)
}

func waitForClients(t *testing.T, hub *Hub, roomID string, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.GetRoomClientCount(roomID) != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients in room, got %d", n, hub.GetRoomClientCount(roomID))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) models.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if env.Type != "message" {
		t.Fatalf("frame type = %s, want message", env.Type)
	}
	var msg models.Message
	json.Unmarshal(env.Payload, &msg)
	return msg
}

func TestServeWS_RejectsInvalidToken(t *testing.T) {
	srv, store, tokens, _ := newTestServer(t)
	roomA := store.CreateRoom("a")
	roomB := store.CreateRoom("b")
	tokA, _ := tokens.Generate("alice", roomA, "a")

	_, resp, err := dial(t, srv, roomB, tokA)
	if err == nil {
		t.Fatal("Dial() with a token for another room should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 response, got %+v", resp)
	}
}

func TestServeWS_PushesStoredMessages(t *testing.T) {
	srv, store, tokens, hub := newTestServer(t)
	room := store.CreateRoom("pw")
	tok, _ := tokens.Generate("alice", room, "pw")

	conn, _, err := dial(t, srv, room, tok)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	waitForClients(t, hub, room, 1)

	store.AddMessage(room, "bob", "hello from http")
	if msg := readMessage(t, conn); msg.Content != "hello from http" || msg.Username != "bob" {
		t.Errorf("pushed message = %+v", msg)
	}
}

func TestServeWS_InboundFramesAreStored(t *testing.T) {
	srv, store, tokens, hub := newTestServer(t)
	room := store.CreateRoom("pw")
	tokA, _ := tokens.Generate("alice", room, "pw")
	tokB, _ := tokens.Generate("bob", room, "pw")

	a, _, err := dial(t, srv, room, tokA)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer a.Close()
	b, _, err := dial(t, srv, room, tokB)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer b.Close()
	waitForClients(t, hub, room, 2)

	a.WriteMessage(websocket.TextMessage, []byte("not json"))
	a.WriteJSON(map[string]interface{}{"type": "typing", "payload": map[string]string{}})
	a.WriteJSON(map[string]interface{}{"type": "message", "payload": InboundMessage{Content: "hi bob"}})

	if msg := readMessage(t, b); msg.Content != "hi bob" || msg.Username != "alice" {
		t.Errorf("bob received %+v", msg)
	}
	if msg := readMessage(t, a); msg.Content != "hi bob" {
		t.Errorf("alice received %+v", msg)
	}

	stored := store.GetMessages(room)
	if len(stored) != 1 || stored[0].Username != "alice" {
		t.Errorf("stored messages = %+v", stored)
	}
}

func TestHub_UnregisterOnClose(t *testing.T) {
	srv, store, tokens, hub := newTestServer(t)
	room := store.CreateRoom("pw")
	tok, _ := tokens.Generate("alice", room, "pw")

	conn, _, err := dial(t, srv, room, tok)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	waitForClients(t, hub, room, 1)
	conn.Close()
	waitForClients(t, hub, room, 0)
}

func TestHub_PublishAfterStop(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	hub.Stop()

	done := make(chan struct{})
	go func() {
		hub.Publish("room", models.Message{Content: "late"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish() blocked after Stop()")
	}
}

func TestServeWS_StoresEmptyMessage(t *testing.T) {
	srv, store, tokens, hub := newTestServer(t)
	room := store.CreateRoom("pw")
	tok, _ := tokens.Generate("alice", room, "pw")

	conn, _, err := dial(t, srv, room, tok)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	waitForClients(t, hub, room, 1)

	conn.WriteJSON(map[string]interface{}{"type": "message", "payload": InboundMessage{}})
	if msg := readMessage(t, conn); msg.Content != "" || msg.Username != "alice" {
		t.Errorf("pushed message = %+v", msg)
	}
	if n := store.MessageCount(room); n != 1 {
		t.Errorf("MessageCount() = %d, want 1", n)
	}
}

func TestServeWS_ClosesOnTokenExpiry(t *testing.T) {
	srv, store, tokens, hub := newTestServerTTL(t, 300*time.Millisecond)
	room := store.CreateRoom("pw")
	tok, _ := tokens.Generate("alice", room, "pw")

	conn, _, err := dial(t, srv, room, tok)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	waitForClients(t, hub, room, 1)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("ReadMessage() error = %v, want policy violation close", err)
	}
	waitForClients(t, hub, room, 0)
}
