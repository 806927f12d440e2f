// Package auth verifies the opaque bearer credential issued by the identity
// provider. Token minting lives with the provider; the helper here exists for
// development and tests.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Verifier struct {
	Secret   string
	Issuer   string
	Audience string
}

// Verify checks the HS256 signature and claims and returns the user id from
// the sub claim.
func (v *Verifier) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(v.Secret), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	if v.Issuer != "" {
		if iss, ok := claims["iss"].(string); !ok || iss != v.Issuer {
			return "", fmt.Errorf("invalid token issuer")
		}
	}

	if v.Audience != "" {
		if aud, ok := claims["aud"].(string); !ok || aud != v.Audience {
			return "", fmt.Errorf("invalid token audience")
		}
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("invalid token subject")
	}

	return sub, nil
}

// GenerateAccess creates a signed HS256 JWT access token for the given user.
func GenerateAccess(secret, userID, issuer, audience string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"iss": issuer,
		"aud": audience,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}
