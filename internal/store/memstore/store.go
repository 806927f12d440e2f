// Package memstore is an in-memory ConversationStore for tests and local
// development. It honors the same ordering and idempotency contracts as the
// durable stores.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rackup-app/messaging/internal/domain"
)

type conversationState struct {
	conv     *domain.Conversation
	messages []*domain.Message
	nextSeq  int64
}

type Store struct {
	mu     sync.Mutex
	byID   map[string]*conversationState
	byKey  map[string]string
	failed bool
}

func New() *Store {
	return &Store{
		byID:  make(map[string]*conversationState),
		byKey: make(map[string]string),
	}
}

// SetUnavailable makes every subsequent call fail with ErrStorageUnavailable.
// Used by tests to exercise degraded-mode behavior.
func (s *Store) SetUnavailable(failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = failed
}

func (s *Store) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failed {
		return domain.ErrStorageUnavailable
	}
	key := conv.LookupKey()
	if _, ok := s.byKey[key]; ok {
		return domain.ErrConversationExists
	}

	c := *conv
	s.byID[conv.ID] = &conversationState{conv: &c}
	s.byKey[key] = conv.ID
	return nil
}

func (s *Store) FindConversationByKey(ctx context.Context, key string) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failed {
		return nil, domain.ErrStorageUnavailable
	}
	id, ok := s.byKey[key]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	c := *s.byID[id].conv
	return &c, nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failed {
		return nil, domain.ErrStorageUnavailable
	}
	state, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	c := *state.conv
	return &c, nil
}

func (s *Store) AppendMessage(ctx context.Context, convID, senderID, text string) (*domain.Message, error) {
	if err := domain.ValidateText(text); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failed {
		return nil, domain.ErrStorageUnavailable
	}
	state, ok := s.byID[convID]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}

	seq := state.nextSeq + 1
	msg, err := domain.NewMessage(uuid.NewString(), convID, senderID, seq, text, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	state.nextSeq = seq
	state.messages = append(state.messages, msg)

	m := *msg
	return &m, nil
}

func (s *Store) ListMessages(ctx context.Context, convID string, afterSeq int64, limit int) ([]*domain.Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failed {
		return nil, domain.ErrStorageUnavailable
	}
	state, ok := s.byID[convID]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}

	var out []*domain.Message
	for _, msg := range state.messages {
		if msg.Seq <= afterSeq {
			continue
		}
		m := *msg
		out = append(out, &m)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) Close() error {
	return nil
}
