package redis

import (
	"context"
	"encoding/json"
	"time"

	"pi-subscription-backend/internal/domain/model"
	"pi-subscription-backend/internal/infra/metrics"
)

// SubscriptionCache is a short-TTL read-through cache for ledger state.
// Writers invalidate; the lazy-expiry path bypasses the cache entirely so a
// stale premium entry can never outlive its row by more than the TTL.
type SubscriptionCache struct {
	cli RedisClient
	ttl time.Duration
}

func NewSubscriptionCache(cli RedisClient, ttl time.Duration) *SubscriptionCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &SubscriptionCache{cli: cli, ttl: ttl}
}

func cacheKey(accountID string) string { return "sub:" + accountID }

func (c *SubscriptionCache) Get(ctx context.Context, accountID string) (*model.Subscription, bool) {
	raw, err := c.cli.Get(ctx, cacheKey(accountID))
	if err != nil {
		// redis.Nil and transient failures are both plain misses
		metrics.IncCache("miss")
		return nil, false
	}
	var s model.Subscription
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		metrics.IncCache("miss")
		return nil, false
	}
	metrics.IncCache("hit")
	return &s, true
}

func (c *SubscriptionCache) Put(ctx context.Context, s *model.Subscription) {
	b, err := json.Marshal(s)
	if err != nil {
		return
	}
	_ = c.cli.Set(ctx, cacheKey(s.AccountID), b, c.ttl)
}

func (c *SubscriptionCache) Invalidate(ctx context.Context, accountID string) {
	_ = c.cli.Del(ctx, cacheKey(accountID))
}
