package listing

import (
	"context"

	"github.com/rackup-app/messaging/internal/domain"
)

// Static is a fixed in-memory catalog used when no catalog service is
// configured (local development, tests). Seed data mirrors the marketplace
// demo inventory.
type Static struct {
	listings map[string]*Listing
}

func NewStatic(listings ...*Listing) *Static {
	s := &Static{listings: make(map[string]*Listing)}
	for _, l := range listings {
		s.listings[l.ID] = l
	}
	return s
}

func NewStaticDemo() *Static {
	return NewStatic(
		&Listing{ID: "r1", OwnerID: "u1", Title: "Wooden Shelf in Walnut Bakery", Locality: "Gomti Nagar", City: "Lucknow"},
		&Listing{ID: "r2", OwnerID: "u2", Title: "Metal Shelf in Speed Wagon", Locality: "Indira Nagar", City: "Lucknow"},
		&Listing{ID: "r3", OwnerID: "u3", Title: "Hanging Shelf in FashionHouse", Locality: "Mahanagar", City: "Lucknow"},
		&Listing{ID: "r4", OwnerID: "u1", Title: "Wooden Shelf in FestiStore", Locality: "Chinhat", City: "Lucknow"},
	)
}

func (s *Static) Get(ctx context.Context, id string) (*Listing, error) {
	l, ok := s.listings[id]
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	copy := *l
	return &copy, nil
}
