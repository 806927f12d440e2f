// Package listing is the read-only client for the listing catalog, an
// external collaborator. The messaging core only needs the owner id and the
// chat-header fields.
package listing

import "context"

type Listing struct {
	ID       string   `json:"id"`
	OwnerID  string   `json:"ownerId"`
	Title    string   `json:"title"`
	Images   []string `json:"images"`
	Locality string   `json:"locality"`
	City     string   `json:"city"`
}

type Service interface {
	Get(ctx context.Context, id string) (*Listing, error)
}
