package ws_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rackup-app/messaging/internal/auth"
	"github.com/rackup-app/messaging/internal/delivery"
	"github.com/rackup-app/messaging/internal/domain"
	"github.com/rackup-app/messaging/internal/store/memstore"
	"github.com/rackup-app/messaging/internal/ws"
)

const (
	testSecret   = "test-secret"
	testIssuer   = "rackup-auth"
	testAudience = "rackup-clients"
)

func setupServer(t *testing.T) (*httptest.Server, *memstore.Store, *domain.Conversation) {
	t.Helper()

	s := memstore.New()
	conv, err := domain.NewConversation("c1", "r2", "me", "u2", time.Now().UTC())
	if err != nil {
		t.Fatalf("failed to build conversation: %v", err)
	}
	if err := s.CreateConversation(context.Background(), conv); err != nil {
		t.Fatalf("failed to create conversation: %v", err)
	}

	verifier := &auth.Verifier{Secret: testSecret, Issuer: testIssuer, Audience: testAudience}
	hub := ws.NewHub()
	coordinator := delivery.NewCoordinator(s, hub, nil, nil, "test")
	handler := ws.NewHandler(hub, s, coordinator, verifier, "test")

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, s, conv
}

func mintToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateAccess(testSecret, userID, testIssuer, testAudience, time.Minute)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	return token
}

func dial(t *testing.T, srv *httptest.Server, userID, conversationID string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") +
		"?token=" + mintToken(t, userID) + "&conversationId=" + conversationID

	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial failed for %s: %v", userID, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) *ws.Outbound {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame ws.Outbound
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame failed: %v", err)
	}
	return &frame
}

func TestHandler_RejectsBeforeUpgrade(t *testing.T) {
	srv, _, conv := setupServer(t)

	cases := []struct {
		name string
		url  string
		want int
	}{
		{"missing params", srv.URL, http.StatusBadRequest},
		{"bad token", srv.URL + "?token=garbage&conversationId=" + conv.ID, http.StatusUnauthorized},
		{"unknown conversation", srv.URL + "?token=" + mintToken(t, "me") + "&conversationId=nope", http.StatusNotFound},
		{"non-participant", srv.URL + "?token=" + mintToken(t, "u3") + "&conversationId=" + conv.ID, http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Get(tc.url)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Errorf("expected status %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}
}

func TestHandler_SendReachesBothSidesInOrder(t *testing.T) {
	srv, s, conv := setupServer(t)

	buyer := dial(t, srv, "me", conv.ID)
	owner := dial(t, srv, "u2", conv.ID)

	if err := buyer.WriteJSON(ws.Inbound{Type: ws.FrameMsg, Text: "Hi! Is the rack available?"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	// The broadcast includes the sender's own handle.
	for name, conn := range map[string]*websocket.Conn{"buyer": buyer, "owner": owner} {
		frame := readFrame(t, conn)
		if frame.Type != ws.FrameMsg {
			t.Fatalf("%s: expected msg frame, got %s", name, frame.Type)
		}
		if frame.Message.Text != "Hi! Is the rack available?" {
			t.Errorf("%s: unexpected text %q", name, frame.Message.Text)
		}
		if frame.Message.SenderID != "me" || frame.Message.Seq != 1 {
			t.Errorf("%s: unexpected message %+v", name, frame.Message)
		}
	}

	if err := owner.WriteJSON(ws.Inbound{Type: ws.FrameMsg, Text: "Yes, from Monday."}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	for name, conn := range map[string]*websocket.Conn{"buyer": buyer, "owner": owner} {
		frame := readFrame(t, conn)
		if frame.Message.Seq != 2 || frame.Message.SenderID != "u2" {
			t.Errorf("%s: unexpected second message %+v", name, frame.Message)
		}
	}

	history, err := s.ListMessages(context.Background(), conv.ID, 0, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("expected 2 persisted messages, got %d", len(history))
	}
}

func TestHandler_RejectedSendGetsErrorFrame(t *testing.T) {
	srv, s, conv := setupServer(t)

	buyer := dial(t, srv, "me", conv.ID)

	if err := buyer.WriteJSON(ws.Inbound{Type: ws.FrameMsg, Text: "   "}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	frame := readFrame(t, buyer)
	if frame.Type != ws.FrameError {
		t.Fatalf("expected error frame, got %s", frame.Type)
	}
	if frame.Error != "invalid_argument" {
		t.Errorf("expected invalid_argument, got %s", frame.Error)
	}

	history, err := s.ListMessages(context.Background(), conv.ID, 0, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("rejected send must not be persisted, got %d messages", len(history))
	}
}
