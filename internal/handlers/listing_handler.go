package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rackup-app/messaging/internal/listing"
	"github.com/rackup-app/messaging/internal/transport"
)

// ListingHandler proxies the read-only listing lookup the chat header needs.
type ListingHandler struct {
	listings listing.Service
}

func NewListingHandler(l listing.Service) *ListingHandler {
	return &ListingHandler{listings: l}
}

// GetListing GET /api/listings/{id}
func (h *ListingHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := transport.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	l, err := h.listings.Get(ctx, id)
	if err != nil {
		transport.DomainError(w, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, l)
}
