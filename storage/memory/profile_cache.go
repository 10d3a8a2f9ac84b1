// Package memorystore holds in-process cache implementations, used when no
// Redis is configured (single-node deployments).
package memorystore

import (
	"context"
	"sync"
	"time"

	"github.com/swimbuddz/membership-gateway/tier"
)

// ProfileCache is an in-memory members.ProfileCache with TTL.
//
// Expiry is enforced on read: an entry past its TTL is never returned, so
// denial-relevant state (lapsed payments, revoked approval) cannot be
// served stale.
type ProfileCache struct {
	mu     sync.Mutex
	ttl    time.Duration
	data   map[string]entry
	closed chan struct{}
}

type entry struct {
	m   *tier.Member
	exp time.Time
}

// NewProfileCache creates an in-memory profile cache. If ttl <= 0, a
// default of 30 seconds is used. A background goroutine sweeps expired
// entries every minute; call Close to stop it.
func NewProfileCache(ttl time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	c := &ProfileCache{ttl: ttl, data: make(map[string]entry), closed: make(chan struct{})}
	go c.cleanupLoop()
	return c
}

func (c *ProfileCache) Put(ctx context.Context, userID string, m *tier.Member) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[userID] = entry{m: m, exp: time.Now().Add(c.ttl)}
	return nil
}

func (c *ProfileCache) Get(ctx context.Context, userID string) (*tier.Member, bool, error) {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.data[userID]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(it.exp) {
		delete(c.data, userID)
		return nil, false, nil
	}
	return it.m, true, nil
}

func (c *ProfileCache) Del(ctx context.Context, userID string) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, userID)
	return nil
}

func (c *ProfileCache) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.closed:
			return
		}
	}
}

func (c *ProfileCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for k, v := range c.data {
		if now.After(v.exp) {
			delete(c.data, k)
		}
	}
}

// Close stops the background sweep goroutine.
func (c *ProfileCache) Close() error {
	close(c.closed)
	return nil
}
