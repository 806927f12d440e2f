package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rackup-app/messaging/internal/middleware"
	"github.com/rackup-app/messaging/internal/observability"
	"github.com/rackup-app/messaging/internal/resolver"
	"github.com/rackup-app/messaging/internal/transport"
)

const (
	errInvalidBody = "invalid_body"
	msgInvalidJSON = "invalid json"

	requestTimeout = 5 * time.Second
)

var validate = validator.New()

// ConversationHandler resolves the conversation for a listing.
type ConversationHandler struct {
	resolver *resolver.Resolver
}

func NewConversationHandler(r *resolver.Resolver) *ConversationHandler {
	return &ConversationHandler{resolver: r}
}

// ResolveConversation POST /api/conversations
// Idempotent create-or-fetch: the same (listing, requester) pair always maps
// to the same conversation. The owner id in the request body is accepted for
// compatibility with the client but the listing catalog is authoritative.
func (h *ConversationHandler) ResolveConversation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req struct {
		ListingID string `json:"listingId" validate:"required"`
		OwnerID   string `json:"ownerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, errInvalidBody, msgInvalidJSON)
		return
	}
	if err := validate.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, errInvalidBody, err.Error())
		return
	}

	ctx, cancel := transport.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	conv, err := h.resolver.Resolve(ctx, req.ListingID, userID)
	if err != nil {
		transport.DomainError(w, err)
		return
	}

	observability.GetLogger(ctx).Info("conversation resolved",
		zap.String("conversation_id", conv.ID),
		zap.String("listing_id", conv.ListingID),
		zap.String("requester_id", userID),
	)

	transport.WriteJSON(w, http.StatusOK, conv)
}
