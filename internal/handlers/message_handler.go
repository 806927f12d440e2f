package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rackup-app/messaging/internal/delivery"
	"github.com/rackup-app/messaging/internal/domain"
	"github.com/rackup-app/messaging/internal/middleware"
	"github.com/rackup-app/messaging/internal/store"
	"github.com/rackup-app/messaging/internal/transport"
)

// MessageHandler serves conversation history and the request/response send
// fallback. Both paths authorize against the stored conversation, never
// against client-supplied participant ids.
type MessageHandler struct {
	store       store.ConversationStore
	coordinator *delivery.Coordinator
}

func NewMessageHandler(s store.ConversationStore, c *delivery.Coordinator) *MessageHandler {
	return &MessageHandler{store: s, coordinator: c}
}

// ListMessages GET /api/conversations/{id}/messages?afterSeq=&limit=
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	convID := chi.URLParam(r, "id")

	ctx, cancel := transport.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	conv, err := h.store.GetConversation(ctx, convID)
	if err != nil {
		transport.DomainError(w, err)
		return
	}
	if err := conv.CanAccess(userID); err != nil {
		transport.DomainError(w, err)
		return
	}

	afterSeq, _ := strconv.ParseInt(r.URL.Query().Get("afterSeq"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	messages, err := h.store.ListMessages(ctx, convID, afterSeq, limit)
	if err != nil {
		transport.DomainError(w, err)
		return
	}
	if messages == nil {
		messages = []*domain.Message{}
	}

	transport.WriteJSON(w, http.StatusOK, messages)
}

// SendMessage POST /api/conversations/{id}/messages
// The fallback send path. Text comes from the JSON body or, as the web client
// sends it, from the `text` query parameter. The server still best-effort
// broadcasts to any open channel handles.
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	convID := chi.URLParam(r, "id")

	text := r.URL.Query().Get("text")
	if text == "" && r.Body != nil {
		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			text = req.Text
		}
	}
	if strings.TrimSpace(text) == "" {
		transport.DomainError(w, domain.ErrEmptyMessage)
		return
	}

	ctx, cancel := transport.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	conv, err := h.store.GetConversation(ctx, convID)
	if err != nil {
		transport.DomainError(w, err)
		return
	}
	if err := conv.CanAccess(userID); err != nil {
		transport.DomainError(w, err)
		return
	}

	msg, err := h.coordinator.Send(ctx, convID, userID, text)
	if err != nil {
		transport.DomainError(w, err)
		return
	}

	transport.WriteJSON(w, http.StatusCreated, msg)
}
