// Package dedupecache is a Redis lookaside that remembers
// (email, client_id) pairs already written back from an external
// provider, so a waterfall cascade run moments apart for the same
// campaign doesn't re-insert (and re-bill credits for) the same lead
// twice while Clay's asynchronous run is still settling. Grounded on
// the prefix+TTL key-value shape of gsoultan-Hermod's redis state
// store (pkg/state/redis.go).
package dedupecache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "disposition:dedupe:"

// Cache is a Seen/Mark lookaside over Redis.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New builds a Cache against an already-configured redis.Client (or a
// miniredis-backed one in tests).
func New(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{client: client, prefix: defaultPrefix, ttl: ttl}
}

func (c *Cache) key(email, clientID string) string {
	return c.prefix + clientID + ":" + email
}

// Seen reports whether (email, clientID) was marked within the TTL window.
func (c *Cache) Seen(ctx context.Context, email, clientID string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(email, clientID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark records (email, clientID) as seen for the configured TTL.
func (c *Cache) Mark(ctx context.Context, email, clientID string) error {
	return c.client.Set(ctx, c.key(email, clientID), "1", c.ttl).Err()
}

// FilterUnseen returns the subset of emails not already marked for
// clientID, so a write-back pass only processes genuinely new leads.
func (c *Cache) FilterUnseen(ctx context.Context, emails []string, clientID string) ([]string, error) {
	var out []string
	for _, email := range emails {
		seen, err := c.Seen(ctx, email, clientID)
		if err != nil {
			return nil, err
		}
		if !seen {
			out = append(out, email)
		}
	}
	return out, nil
}
