package transport

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/rackup-app/messaging/internal/domain"
	"github.com/rackup-app/messaging/internal/observability"
)

// DomainError maps a domain error onto the HTTP error taxonomy. Channel-level
// transient errors never reach here; they are recovered by the fallback path.
func DomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrListingNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "listing not found")
	case errors.Is(err, domain.ErrConversationNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "conversation not found")
	case errors.Is(err, domain.ErrNotParticipant):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "not a participant of this conversation")
	case errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrMessageTooLarge),
		errors.Is(err, domain.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, domain.ErrStorageUnavailable),
		errors.Is(err, domain.ErrChannelUnavailable):
		WriteError(w, http.StatusServiceUnavailable, "unavailable", "service temporarily unavailable")
	default:
		observability.GetLogger(context.Background()).Error("internal_error", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}
