package domain

import (
	"strings"
	"time"
)

const MaxMessageSize = 5000

// Message Invariants:
// 1. Ordering: Seq is strictly increasing, gapless, and unique per ConversationID.
// 2. Immutability: all fields are immutable once the message is accepted.
// 3. SentAt is assigned at acceptance time by the store, never by the client.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Seq            int64     `json:"seq"`
	Text           string    `json:"text"`
	SentAt         time.Time `json:"sentAt"`
}

// ValidateText checks the send payload without touching any other state, so
// stores can reject input before claiming a sequence number.
func ValidateText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if len(text) > MaxMessageSize {
		return ErrMessageTooLarge
	}
	return nil
}

func NewMessage(id, conversationID, senderID string, seq int64, text string, now time.Time) (*Message, error) {
	if id == "" || conversationID == "" || senderID == "" {
		return nil, ErrInvalidInput
	}
	if seq <= 0 {
		return nil, ErrInvalidInput
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if len(text) > MaxMessageSize {
		return nil, ErrMessageTooLarge
	}
	return &Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       senderID,
		Seq:            seq,
		Text:           text,
		SentAt:         now,
	}, nil
}
