// Package store defines the durable conversation log. Two interchangeable
// implementations exist: postgres (live backend) and badgerstore (embedded
// local persistence). AppendMessage is the single ordering authority for a
// conversation; every delivery path routes through it.
package store

import (
	"context"

	"github.com/rackup-app/messaging/internal/domain"
)

type ConversationStore interface {
	// CreateConversation persists a new conversation. A second create for the
	// same (listing, pair) key fails with domain.ErrConversationExists.
	CreateConversation(ctx context.Context, conv *domain.Conversation) error

	FindConversationByKey(ctx context.Context, key string) (*domain.Conversation, error)
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)

	// AppendMessage validates text, assigns ID, Seq and SentAt at acceptance
	// time and appends to the conversation log. Once it returns the message is
	// retrievable via ListMessages.
	AppendMessage(ctx context.Context, convID, senderID, text string) (*domain.Message, error)

	// ListMessages returns messages ordered by Seq, strictly after afterSeq,
	// up to limit. Pass afterSeq=0 to read from the beginning.
	ListMessages(ctx context.Context, convID string, afterSeq int64, limit int) ([]*domain.Message, error)

	Close() error
}
