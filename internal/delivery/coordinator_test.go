package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rackup-app/messaging/internal/domain"
	"github.com/rackup-app/messaging/internal/store/memstore"
	"github.com/rackup-app/messaging/internal/ws"
)

func setupConversation(t *testing.T) (*Coordinator, *memstore.Store, *ws.Hub, *domain.Conversation) {
	t.Helper()

	s := memstore.New()
	conv, err := domain.NewConversation("c1", "r2", "me", "u2", time.Now().UTC())
	if err != nil {
		t.Fatalf("failed to build conversation: %v", err)
	}
	if err := s.CreateConversation(context.Background(), conv); err != nil {
		t.Fatalf("failed to create conversation: %v", err)
	}

	hub := ws.NewHub()
	return NewCoordinator(s, hub, nil, nil, "test"), s, hub, conv
}

func decodeFrame(t *testing.T, s *ws.Session) *ws.Outbound {
	t.Helper()
	select {
	case raw := <-s.SendQueue:
		var frame ws.Outbound
		if err := json.Unmarshal(raw, &frame); err != nil {
			t.Fatalf("invalid frame: %v", err)
		}
		return &frame
	default:
		t.Fatalf("session %s has no pending frame", s.ID)
		return nil
	}
}

func TestSend_PersistsAndBroadcastsToBothSides(t *testing.T) {
	c, s, hub, conv := setupConversation(t)

	buyer := ws.NewSession("s1", conv.ID, "me", nil)
	owner := ws.NewSession("s2", conv.ID, "u2", nil)
	hub.Add(buyer)
	hub.Add(owner)

	msg, err := c.Send(context.Background(), conv.ID, "me", "Hi! Is the rack available?")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if msg.Seq != 1 {
		t.Errorf("expected seq 1, got %d", msg.Seq)
	}
	if msg.SenderID != "me" {
		t.Errorf("expected sender me, got %s", msg.SenderID)
	}

	// Both handles receive the frame, the sender's own included.
	for _, session := range []*ws.Session{buyer, owner} {
		frame := decodeFrame(t, session)
		if frame.Type != ws.FrameMsg {
			t.Errorf("expected msg frame, got %s", frame.Type)
		}
		if frame.Message == nil || frame.Message.ID != msg.ID {
			t.Errorf("session %s received wrong message: %+v", session.ID, frame.Message)
		}
		if frame.Message.Text != "Hi! Is the rack available?" {
			t.Errorf("unexpected text: %q", frame.Message.Text)
		}
	}

	// Durability is independent of delivery.
	history, err := s.ListMessages(context.Background(), conv.ID, 0, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(history) != 1 || history[0].ID != msg.ID {
		t.Errorf("expected persisted message in history, got %v", history)
	}
}

func TestSend_IdenticalOrderAcrossHandles(t *testing.T) {
	c, _, hub, conv := setupConversation(t)

	buyer := ws.NewSession("s1", conv.ID, "me", nil)
	owner := ws.NewSession("s2", conv.ID, "u2", nil)
	hub.Add(buyer)
	hub.Add(owner)

	texts := []string{"Hi! Is the rack available?", "Yes, from Monday.", "Great, I'll take it."}
	senders := []string{"me", "u2", "me"}
	for i := range texts {
		if _, err := c.Send(context.Background(), conv.ID, senders[i], texts[i]); err != nil {
			t.Fatalf("send %d failed: %v", i, err)
		}
	}

	for _, session := range []*ws.Session{buyer, owner} {
		for i := range texts {
			frame := decodeFrame(t, session)
			if frame.Message.Text != texts[i] {
				t.Errorf("session %s: expected %q at position %d, got %q", session.ID, texts[i], i, frame.Message.Text)
			}
			if frame.Message.Seq != int64(i+1) {
				t.Errorf("session %s: expected seq %d, got %d", session.ID, i+1, frame.Message.Seq)
			}
		}
	}
}

func TestSend_ClosedHandleDoesNotFailSend(t *testing.T) {
	c, s, hub, conv := setupConversation(t)

	owner := ws.NewSession("s2", conv.ID, "u2", nil)
	hub.Add(owner)
	owner.Close()

	// The receiver's channel dropped mid-conversation; the sender falls back
	// to the request/response path, which still lands in the durable log.
	msg, err := c.Send(context.Background(), conv.ID, "me", "Still there?")
	if err != nil {
		t.Fatalf("send with closed handle failed: %v", err)
	}

	history, err := s.ListMessages(context.Background(), conv.ID, 0, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(history) != 1 || history[0].ID != msg.ID || history[0].Text != "Still there?" {
		t.Errorf("message must be durable regardless of delivery, got %v", history)
	}
}

func TestSend_ValidationAndStorageErrors(t *testing.T) {
	c, s, _, conv := setupConversation(t)
	ctx := context.Background()

	if _, err := c.Send(ctx, conv.ID, "me", "   "); !errors.Is(err, domain.ErrEmptyMessage) {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
	if _, err := c.Send(ctx, "nope", "me", "hello"); !errors.Is(err, domain.ErrConversationNotFound) {
		t.Errorf("expected ErrConversationNotFound, got %v", err)
	}

	s.SetUnavailable(true)
	if _, err := c.Send(ctx, conv.ID, "me", "hello"); !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Errorf("expected ErrStorageUnavailable, got %v", err)
	}
}
