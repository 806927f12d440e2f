package domain

import (
	"fmt"
	"time"
)

// Conversation Invariants:
// 1. Uniqueness: exactly one conversation per (listing, participant pair).
// 2. Membership: exactly 2 participants, the buyer and the listing owner.
// 3. Mutation: message append only; the conversation row itself never changes.
type Conversation struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listingId"`
	BuyerID   string    `json:"buyerId"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
}

// PairKey builds the canonical lookup key for a listing-scoped direct
// conversation. The participant pair is sorted so both sides derive the
// same key.
func PairKey(listingID, a, b string) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("listing:%s:direct:%s:%s", listingID, a, b)
}

func (c *Conversation) LookupKey() string {
	return PairKey(c.ListingID, c.BuyerID, c.OwnerID)
}

func (c *Conversation) CanAccess(userID string) error {
	if userID != c.BuyerID && userID != c.OwnerID {
		return ErrNotParticipant
	}
	return nil
}

func NewConversation(id, listingID, buyerID, ownerID string, now time.Time) (*Conversation, error) {
	if id == "" || listingID == "" || buyerID == "" || ownerID == "" {
		return nil, ErrInvalidInput
	}
	if buyerID == ownerID {
		return nil, ErrInvalidInput
	}
	return &Conversation{
		ID:        id,
		ListingID: listingID,
		BuyerID:   buyerID,
		OwnerID:   ownerID,
		CreatedAt: now,
	}, nil
}
