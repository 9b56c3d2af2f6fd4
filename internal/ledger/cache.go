package ledger

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps Redis for account mapping lookups. Mappings change rarely;
// a short TTL keeps a manual remap from lingering. All methods are nil-safe
// so the resolver works without Redis in tests and small deployments.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// GetAccountID loads a cached account id.
func (c *Cache) GetAccountID(ctx context.Context, key string) (int64, bool) {
	if c == nil || c.client == nil {
		return 0, false
	}
	id, err := c.client.Get(ctx, key).Int64()
	if err != nil {
		return 0, false
	}
	return id, true
}

// SetAccountID stores an account id. Failures are ignored; the mapping
// store remains authoritative.
func (c *Cache) SetAccountID(ctx context.Context, key string, id int64) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Set(ctx, key, id, c.ttl).Err()
}
