package listing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rackup-app/messaging/internal/observability"
)

const cacheTTL = 5 * time.Minute

// Cache is a read-through redis decorator over another Service. Listings are
// immutable context for conversation creation, so a short TTL is enough.
type Cache struct {
	next   Service
	client *redis.Client
}

func NewCache(next Service, client *redis.Client) *Cache {
	return &Cache{next: next, client: client}
}

func (c *Cache) key(id string) string {
	return "listing:" + id
}

func (c *Cache) Get(ctx context.Context, id string) (*Listing, error) {
	log := observability.GetLogger(ctx)

	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err == nil {
		var l Listing
		if err := json.Unmarshal(data, &l); err == nil {
			return &l, nil
		}
		// Corrupt entry: drop it and fall through to the source.
		_ = c.client.Del(ctx, c.key(id)).Err()
	} else if !errors.Is(err, redis.Nil) {
		log.Warn("listing cache read failed", zap.String("listing_id", id), zap.Error(err))
	}

	l, err := c.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(l); err == nil {
		if err := c.client.Set(ctx, c.key(id), data, cacheTTL).Err(); err != nil {
			log.Warn("listing cache write failed", zap.String("listing_id", id), zap.Error(err))
		}
	}

	return l, nil
}
