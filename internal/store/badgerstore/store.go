// Package badgerstore is the local-persistence ConversationStore variant: an
// embedded BadgerDB log for single-node deployments and development. It is
// interchangeable with the postgres store behind the same interface.
package badgerstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/rackup-app/messaging/internal/domain"
)

const appendRetries = 5

type Store struct {
	db *badger.DB
}

func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Key layout. Message keys embed the zero-padded sequence so that badger's
// lexicographic iteration order is the conversation's append order.
func convKey(id string) []byte       { return []byte("conv:id:" + id) }
func lookupKey(key string) []byte    { return []byte("conv:key:" + key) }
func seqKey(convID string) []byte    { return []byte("seq:" + convID) }
func msgPrefix(convID string) []byte { return []byte("msg:" + convID + ":") }
func msgKey(convID string, seq int64) []byte {
	return []byte(fmt.Sprintf("msg:%s:%020d", convID, seq))
}

func (s *Store) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(lookupKey(conv.LookupKey()))
		if err == nil {
			return domain.ErrConversationExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		data, err := json.Marshal(conv)
		if err != nil {
			return err
		}
		if err := txn.Set(convKey(conv.ID), data); err != nil {
			return err
		}
		if err := txn.Set(lookupKey(conv.LookupKey()), []byte(conv.ID)); err != nil {
			return err
		}
		return txn.Set(seqKey(conv.ID), encodeSeq(0))
	})

	// Two same-millisecond creates for one pair conflict on the lookup key;
	// the loser reports the winner's conversation as already existing.
	if errors.Is(err, badger.ErrConflict) {
		return domain.ErrConversationExists
	}
	if err != nil {
		if errors.Is(err, domain.ErrConversationExists) {
			return domain.ErrConversationExists
		}
		return storageErr(err)
	}
	return nil
}

func (s *Store) FindConversationByKey(ctx context.Context, key string) (*domain.Conversation, error) {
	var conv *domain.Conversation
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(lookupKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(id []byte) error {
			conv, err = s.getConversation(txn, string(id))
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrConversationNotFound
	}
	if err != nil {
		if errors.Is(err, domain.ErrConversationNotFound) {
			return nil, err
		}
		return nil, storageErr(err)
	}
	return conv, nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	var conv *domain.Conversation
	err := s.db.View(func(txn *badger.Txn) error {
		var inner error
		conv, inner = s.getConversation(txn, id)
		return inner
	})
	if err != nil {
		if errors.Is(err, domain.ErrConversationNotFound) {
			return nil, err
		}
		return nil, storageErr(err)
	}
	return conv, nil
}

func (s *Store) getConversation(txn *badger.Txn, id string) (*domain.Conversation, error) {
	item, err := txn.Get(convKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}
	var conv domain.Conversation
	if err := item.Value(func(v []byte) error {
		return json.Unmarshal(v, &conv)
	}); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *Store) AppendMessage(ctx context.Context, convID, senderID, text string) (*domain.Message, error) {
	if err := domain.ValidateText(text); err != nil {
		return nil, err
	}

	var result *domain.Message

	// Concurrent appends to one conversation conflict on the sequence key;
	// retry re-reads the sequence so the log stays gapless.
	var err error
	for i := 0; i < appendRetries; i++ {
		err = s.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(seqKey(convID))
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return domain.ErrConversationNotFound
				}
				return err
			}

			var seq int64
			if err := item.Value(func(v []byte) error {
				seq = decodeSeq(v)
				return nil
			}); err != nil {
				return err
			}
			seq++

			msg, err := domain.NewMessage(uuid.NewString(), convID, senderID, seq, text, time.Now().UTC())
			if err != nil {
				return err
			}

			data, err := json.Marshal(msg)
			if err != nil {
				return err
			}
			if err := txn.Set(msgKey(convID, seq), data); err != nil {
				return err
			}
			if err := txn.Set(seqKey(convID), encodeSeq(seq)); err != nil {
				return err
			}

			result = msg
			return nil
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
		result = nil
	}

	if err != nil {
		if errors.Is(err, domain.ErrConversationNotFound) ||
			errors.Is(err, domain.ErrEmptyMessage) ||
			errors.Is(err, domain.ErrMessageTooLarge) {
			return nil, err
		}
		return nil, storageErr(err)
	}
	return result, nil
}

func (s *Store) ListMessages(ctx context.Context, convID string, afterSeq int64, limit int) ([]*domain.Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var messages []*domain.Message
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.PrefetchSize = limit

		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := msgPrefix(convID)
		start := msgKey(convID, afterSeq+1)

		for it.Seek(start); it.ValidForPrefix(prefix) && len(messages) < limit; it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var msg domain.Message
				if err := json.Unmarshal(v, &msg); err != nil {
					return err
				}
				messages = append(messages, &msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, storageErr(err)
	}
	return messages, nil
}

func encodeSeq(seq int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(seq))
	return buf
}

func decodeSeq(v []byte) int64 {
	if len(v) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(v))
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
}
