package transport

import (
	"context"
	"time"
)

// WithTimeout bounds a handler's downstream calls so a stuck dependency
// cannot hold the request open indefinitely.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d)
}
