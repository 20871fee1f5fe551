package redis

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"
)

const unreadKeyPrefix = "push:unread:"

// UnreadCache keeps per-recipient unread notification counters in Redis.
// The delivery_records table remains the source of truth; the cache only
// spares the hot read path a COUNT query.
type UnreadCache struct {
	client *goredis.Client
}

func NewUnreadCache(client *goredis.Client) (*UnreadCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &UnreadCache{client: client}, nil
}

func unreadKey(recipientID string) (string, error) {
	trimmed := strings.TrimSpace(recipientID)
	if trimmed == "" {
		return "", fmt.Errorf("recipient id is required")
	}
	return unreadKeyPrefix + trimmed, nil
}

// Add increments a recipient's unread counter. Callers pass the number of
// delivery rows actually inserted, which keeps replays from double-counting.
func (c *UnreadCache) Add(ctx context.Context, recipientID string, delta int) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("unread cache is not initialized")
	}
	if delta == 0 {
		return nil
	}

	key, err := unreadKey(recipientID)
	if err != nil {
		return err
	}

	if err := c.client.IncrBy(ctx, key, int64(delta)).Err(); err != nil {
		return fmt.Errorf("failed to increment unread counter: %w", err)
	}
	return nil
}

// Get returns the cached unread count. A missing key reads as zero with
// ok=false so callers can fall back to the durable store.
func (c *UnreadCache) Get(ctx context.Context, recipientID string) (int64, bool, error) {
	if c == nil || c.client == nil {
		return 0, false, fmt.Errorf("unread cache is not initialized")
	}

	key, err := unreadKey(recipientID)
	if err != nil {
		return 0, false, err
	}

	count, err := c.client.Get(ctx, key).Int64()
	if err == goredis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read unread counter: %w", err)
	}
	return count, true, nil
}

// Set overwrites the cached value, used when rebuilding from the store.
func (c *UnreadCache) Set(ctx context.Context, recipientID string, count int64) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("unread cache is not initialized")
	}

	key, err := unreadKey(recipientID)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, key, count, 0).Err(); err != nil {
		return fmt.Errorf("failed to set unread counter: %w", err)
	}
	return nil
}
