package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lexora-inc/lexora/internal/domain/entitlement"
	"github.com/lexora-inc/lexora/internal/shared/logger"
)

const (
	entitlementKeyPrefix = "entitlement:view:"
	// TTL jitter keeps keys written in the same burst from expiring together.
	entitlementTTLJitterRatio = 5
)

// RedisEntitlementCache stores resolved entitlement views as JSON strings.
type RedisEntitlementCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Interface
}

// NewRedisEntitlementCache creates a Redis-backed entitlement cache.
func NewRedisEntitlementCache(client *redis.Client, ttl time.Duration, logger logger.Interface) *RedisEntitlementCache {
	return &RedisEntitlementCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *RedisEntitlementCache) key(organizationID string) string {
	return entitlementKeyPrefix + organizationID
}

func (c *RedisEntitlementCache) ttlWithJitter() time.Duration {
	jitter := c.ttl / entitlementTTLJitterRatio
	if jitter <= 0 {
		return c.ttl
	}
	return c.ttl + rand.N(jitter)
}

// Get returns nil, nil on a cache miss.
func (c *RedisEntitlementCache) Get(ctx context.Context, organizationID string) (*entitlement.View, error) {
	raw, err := c.client.Get(ctx, c.key(organizationID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get entitlement from cache: %w", err)
	}

	var view entitlement.View
	if err := json.Unmarshal(raw, &view); err != nil {
		// A payload from an older release is treated as a miss and dropped.
		c.logger.Warnw("discarding undecodable entitlement cache entry",
			"organization_id", organizationID,
			"error", err,
		)
		_ = c.client.Del(ctx, c.key(organizationID)).Err()
		return nil, nil
	}
	return &view, nil
}

func (c *RedisEntitlementCache) Set(ctx context.Context, view *entitlement.View) error {
	if view == nil || view.OrganizationID == "" {
		return nil
	}
	payload, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to encode entitlement view: %w", err)
	}
	if err := c.client.Set(ctx, c.key(view.OrganizationID), payload, c.ttlWithJitter()).Err(); err != nil {
		return fmt.Errorf("failed to set entitlement cache: %w", err)
	}
	return nil
}

// Invalidate removes the cached views of the given organizations.
func (c *RedisEntitlementCache) Invalidate(ctx context.Context, organizationIDs ...string) error {
	if len(organizationIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(organizationIDs))
	for _, id := range organizationIDs {
		keys = append(keys, c.key(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Errorw("failed to invalidate entitlement cache",
			"organization_ids", organizationIDs,
			"error", err,
		)
		return fmt.Errorf("failed to invalidate entitlement cache: %w", err)
	}
	return nil
}

// NopEntitlementCache is used when Redis is disabled. Every lookup misses.
type NopEntitlementCache struct{}

func NewNopEntitlementCache() NopEntitlementCache { return NopEntitlementCache{} }

func (NopEntitlementCache) Get(context.Context, string) (*entitlement.View, error) { return nil, nil }
func (NopEntitlementCache) Set(context.Context, *entitlement.View) error { return nil }
func (NopEntitlementCache) Invalidate(context.Context, ...string) error { return nil }
