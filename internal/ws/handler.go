package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rackup-app/messaging/internal/auth"
	"github.com/rackup-app/messaging/internal/domain"
	"github.com/rackup-app/messaging/internal/observability"
	"github.com/rackup-app/messaging/internal/store"
)

// Sender is the send path behind the channel; the delivery coordinator
// implements it.
type Sender interface {
	Send(ctx context.Context, conversationID, senderID, text string) (*domain.Message, error)
}

type Handler struct {
	hub         *Hub
	store       store.ConversationStore
	sender      Sender
	verifier    *auth.Verifier
	serviceName string
}

func NewHandler(hub *Hub, s store.ConversationStore, sender Sender, verifier *auth.Verifier, serviceName string) *Handler {
	return &Handler{
		hub:         hub,
		store:       s,
		sender:      sender,
		verifier:    verifier,
		serviceName: serviceName,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeHTTP opens a channel: GET /api/ws/chat?token=..&conversationId=..
// The token must resolve to a participant of the conversation before the
// connection upgrades.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := observability.GetLogger(r.Context())

	token := r.URL.Query().Get("token")
	conversationID := r.URL.Query().Get("conversationId")

	if token == "" || conversationID == "" {
		http.Error(w, "missing token or conversationId", http.StatusBadRequest)
		return
	}

	userID, err := h.verifier.Verify(token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conv, err := h.store.GetConversation(r.Context(), conversationID)
	if err != nil {
		if errors.Is(err, domain.ErrConversationNotFound) {
			http.Error(w, "conversation not found", http.StatusNotFound)
			return
		}
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	if err := conv.CanAccess(userID); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("upgrade error", zap.Error(err))
		return
	}

	session := NewSession(uuid.NewString(), conversationID, userID, conn)
	h.hub.Add(session)
	session.Start()

	log.Info("channel opened",
		zap.String("conversation_id", conversationID),
		zap.String("user_id", userID),
		zap.String("session_id", session.ID),
	)
	observability.WebSocketConnectionsActive.WithLabelValues(h.serviceName).Inc()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go h.readLoop(session)
}

func (h *Handler) readLoop(s *Session) {
	defer func() {
		h.hub.Remove(s)
		s.Close()
		log := observability.GetLogger(context.Background())
		log.Info("channel closed",
			zap.String("conversation_id", s.ConversationID),
			zap.String("user_id", s.UserID),
			zap.String("session_id", s.ID),
		)
		observability.WebSocketConnectionsActive.WithLabelValues(h.serviceName).Dec()
	}()

	for {
		_, raw, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				observability.GetLogger(context.Background()).Warn("read loop error",
					zap.String("session_id", s.ID), zap.Error(err))
			}
			return
		}

		var frame Inbound
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.TrySend(ErrorFrame("invalid_frame"))
			continue
		}
		if frame.Type != FrameMsg {
			continue
		}

		// Persistence-then-broadcast happens inside the coordinator; the
		// broadcast includes this session, so there is no local echo here.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err = h.sender.Send(ctx, s.ConversationID, s.UserID, frame.Text)
		cancel()
		if err != nil {
			s.TrySend(ErrorFrame(errorCode(err)))
		}
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyMessage), errors.Is(err, domain.ErrMessageTooLarge), errors.Is(err, domain.ErrInvalidInput):
		return "invalid_argument"
	case errors.Is(err, domain.ErrConversationNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrNotParticipant):
		return "unauthorized"
	default:
		return "storage_unavailable"
	}
}
