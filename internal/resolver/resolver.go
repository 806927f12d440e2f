// Package resolver finds or creates the single conversation for a listing
// between a requester and the listing owner.
package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rackup-app/messaging/internal/domain"
	"github.com/rackup-app/messaging/internal/listing"
	"github.com/rackup-app/messaging/internal/observability"
	"github.com/rackup-app/messaging/internal/store"
)

type Resolver struct {
	store    store.ConversationStore
	listings listing.Service
}

func New(s store.ConversationStore, listings listing.Service) *Resolver {
	return &Resolver{store: s, listings: listings}
}

// Resolve is idempotent: concurrent calls for the same (listing, requester)
// pair converge on one conversation. The store's uniqueness constraint on the
// pair key is the arbiter; the loser of a create race refetches the winner.
func (r *Resolver) Resolve(ctx context.Context, listingID, requesterID string) (*domain.Conversation, error) {
	log := observability.GetLogger(ctx)

	if listingID == "" || requesterID == "" {
		return nil, domain.ErrInvalidInput
	}

	l, err := r.listings.Get(ctx, listingID)
	if err != nil {
		return nil, err
	}

	if requesterID == l.OwnerID {
		// The owner has no counterpart until a buyer opens the thread.
		return nil, domain.ErrInvalidInput
	}

	key := domain.PairKey(listingID, requesterID, l.OwnerID)

	conv, err := r.store.FindConversationByKey(ctx, key)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, domain.ErrConversationNotFound) {
		return nil, err
	}

	created, err := domain.NewConversation(uuid.NewString(), listingID, requesterID, l.OwnerID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	err = r.store.CreateConversation(ctx, created)
	if err == nil {
		log.Info("conversation created",
			zap.String("conversation_id", created.ID),
			zap.String("listing_id", listingID),
		)
		return created, nil
	}
	if !errors.Is(err, domain.ErrConversationExists) {
		return nil, err
	}

	// Lost the race to another resolve (second tab, double click).
	return r.store.FindConversationByKey(ctx, key)
}
