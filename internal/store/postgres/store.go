package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rackup-app/messaging/internal/domain"
)

// Store is the live-backend ConversationStore. Message ordering is enforced
// with a per-conversation sequence row claimed via UPDATE ... RETURNING, so
// concurrent appends serialize on the row lock and sequences come out gapless.
type Store struct {
	db *sql.DB
	tx *txManager
}

func New(db *sql.DB) *Store {
	return &Store{db: db, tx: &txManager{db: db}}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO conversations (id, listing_id, buyer_id, owner_id, lookup_key, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (lookup_key) DO NOTHING
		`, conv.ID, conv.ListingID, conv.BuyerID, conv.OwnerID, conv.LookupKey(), conv.CreatedAt)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrConversationExists
		}

		// Sequence starts at 0; AppendMessage increments first, so the first
		// message gets sequence 1.
		_, err = tx.ExecContext(ctx, `
			INSERT INTO conversation_sequences (conversation_id, next_sequence)
			VALUES ($1, 0)
		`, conv.ID)
		return err
	})
	if err == domain.ErrConversationExists {
		return err
	}
	if err != nil {
		return storageErr(err)
	}
	return nil
}

func (s *Store) FindConversationByKey(ctx context.Context, key string) (*domain.Conversation, error) {
	return s.scanConversation(s.db.QueryRowContext(ctx, `
		SELECT id, listing_id, buyer_id, owner_id, created_at
		FROM conversations
		WHERE lookup_key = $1
	`, key))
}

func (s *Store) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	return s.scanConversation(s.db.QueryRowContext(ctx, `
		SELECT id, listing_id, buyer_id, owner_id, created_at
		FROM conversations
		WHERE id = $1
	`, id))
}

func (s *Store) scanConversation(row *sql.Row) (*domain.Conversation, error) {
	var c domain.Conversation
	err := row.Scan(&c.ID, &c.ListingID, &c.BuyerID, &c.OwnerID, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrConversationNotFound
		}
		return nil, storageErr(err)
	}
	return &c, nil
}

func (s *Store) AppendMessage(ctx context.Context, convID, senderID, text string) (*domain.Message, error) {
	// Validate before claiming a sequence number so rejected input cannot
	// leave a gap.
	if err := domain.ValidateText(text); err != nil {
		return nil, err
	}

	var result *domain.Message

	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var seq int64
		err := tx.QueryRowContext(ctx, `
			UPDATE conversation_sequences
			SET next_sequence = next_sequence + 1
			WHERE conversation_id = $1
			RETURNING next_sequence
		`, convID).Scan(&seq)
		if err != nil {
			if err == sql.ErrNoRows {
				return domain.ErrConversationNotFound
			}
			return err
		}

		msg, err := domain.NewMessage(uuid.NewString(), convID, senderID, seq, text, time.Now().UTC())
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO messages (id, conversation_id, sender_id, sequence, text, sent_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, msg.ID, msg.ConversationID, msg.SenderID, msg.Seq, msg.Text, msg.SentAt)
		if err != nil {
			return err
		}

		result = msg
		return nil
	})
	if err != nil {
		if err == domain.ErrConversationNotFound {
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

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender_id, sequence, text, sent_at
		FROM messages
		WHERE conversation_id = $1
		  AND sequence > $2
		ORDER BY sequence ASC
		LIMIT $3
	`, convID, afterSeq, limit)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.SenderID,
			&msg.Seq,
			&msg.Text,
			&msg.SentAt,
		); err != nil {
			return nil, storageErr(err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}

	return messages, nil
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
}
