package auth

import (
	"testing"
	"time"
)

func TestVerify_RoundTrip(t *testing.T) {
	v := &Verifier{Secret: "test-secret", Issuer: "rackup-auth", Audience: "rackup-clients"}

	token, err := GenerateAccess("test-secret", "me", "rackup-auth", "rackup-clients", time.Minute)
	if err != nil {
		t.Fatalf("failed to mint: %v", err)
	}

	userID, err := v.Verify(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if userID != "me" {
		t.Errorf("expected subject me, got %s", userID)
	}
}

func TestVerify_Rejections(t *testing.T) {
	v := &Verifier{Secret: "test-secret", Issuer: "rackup-auth", Audience: "rackup-clients"}

	cases := []struct {
		name  string
		token func() string
	}{
		{"wrong secret", func() string {
			tok, _ := GenerateAccess("other-secret", "me", "rackup-auth", "rackup-clients", time.Minute)
			return tok
		}},
		{"wrong issuer", func() string {
			tok, _ := GenerateAccess("test-secret", "me", "someone-else", "rackup-clients", time.Minute)
			return tok
		}},
		{"wrong audience", func() string {
			tok, _ := GenerateAccess("test-secret", "me", "rackup-auth", "other-app", time.Minute)
			return tok
		}},
		{"expired", func() string {
			tok, _ := GenerateAccess("test-secret", "me", "rackup-auth", "rackup-clients", -time.Minute)
			return tok
		}},
		{"garbage", func() string { return "not-a-token" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := v.Verify(tc.token()); err == nil {
				t.Error("expected verification to fail")
			}
		})
	}
}
