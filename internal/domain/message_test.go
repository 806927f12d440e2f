package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateText(t *testing.T) {
	cases := []struct {
		name string
		text string
		want error
	}{
		{"plain", "Hi! Is the rack available?", nil},
		{"empty", "", ErrEmptyMessage},
		{"whitespace only", "   \t\n  ", ErrEmptyMessage},
		{"at limit", strings.Repeat("a", MaxMessageSize), nil},
		{"over limit", strings.Repeat("a", MaxMessageSize+1), ErrMessageTooLarge},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateText(tc.text)
			if !errors.Is(err, tc.want) {
				t.Errorf("ValidateText(%q) = %v, want %v", tc.text, err, tc.want)
			}
		})
	}
}

func TestNewMessage_TrimsText(t *testing.T) {
	m, err := NewMessage("m1", "c1", "me", 1, "  hello  ", time.Now())
	if err != nil {
		t.Fatalf("failed to create: %v", err)
	}
	if m.Text != "hello" {
		t.Errorf("expected trimmed text, got %q", m.Text)
	}
}

func TestNewMessage_RejectsNonPositiveSeq(t *testing.T) {
	if _, err := NewMessage("m1", "c1", "me", 0, "hello", time.Now()); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("seq 0 should be rejected, got %v", err)
	}
}
