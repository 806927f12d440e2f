package domain

import "errors"

var (
	ErrListingNotFound      = errors.New("listing not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrConversationExists   = errors.New("conversation already exists")
	ErrNotParticipant       = errors.New("user not participant")
	ErrEmptyMessage         = errors.New("message text is empty")
	ErrMessageTooLarge      = errors.New("message too large")
	ErrInvalidInput         = errors.New("invalid input")
	ErrStorageUnavailable   = errors.New("storage unavailable")
	ErrChannelUnavailable   = errors.New("realtime channel unavailable")
)
