package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit limits requests by IP address.
func RateLimit(requests int, window time.Duration) func(next http.Handler) http.Handler {
	return httprate.LimitByIP(requests, window)
}
