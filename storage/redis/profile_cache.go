// Package redisstore holds Redis-backed cache implementations, shared
// across gateway replicas.
package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/swimbuddz/membership-gateway/tier"
)

// ProfileCache is a Redis-backed members.ProfileCache. Redis key TTL is the
// sole freshness mechanism, matching the never-serve-stale contract.
type ProfileCache struct {
	rdb   *redis.Client
	keyNS string
	ttl   time.Duration
}

// NewProfileCache builds a Redis profile cache. Empty keyPrefix defaults to
// "gate:member:"; ttl <= 0 defaults to 30 seconds.
func NewProfileCache(rdb *redis.Client, keyPrefix string, ttl time.Duration) *ProfileCache {
	if keyPrefix == "" {
		keyPrefix = "gate:member:"
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &ProfileCache{rdb: rdb, keyNS: keyPrefix, ttl: ttl}
}

func (c *ProfileCache) key(userID string) string { return c.keyNS + userID }

func (c *ProfileCache) Put(ctx context.Context, userID string, m *tier.Member) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(userID), b, c.ttl).Err()
}

func (c *ProfileCache) Get(ctx context.Context, userID string) (*tier.Member, bool, error) {
	val, err := c.rdb.Get(ctx, c.key(userID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var m tier.Member
	if err := json.Unmarshal(val, &m); err != nil {
		return nil, false, err
	}
	return &m, true, nil
}

func (c *ProfileCache) Del(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, c.key(userID)).Err()
}
