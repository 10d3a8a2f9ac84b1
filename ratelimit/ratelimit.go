// Package ratelimit defines the sliding-window limiter contract shared by
// the memory and redis implementations.
package ratelimit

import (
	"context"
	"time"
)

// Limit defines window and max count for a bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

// Limiter answers whether one more event is allowed for (bucket, key).
// Buckets name gateway operations; keys identify the caller (user id, IP).
type Limiter interface {
	Allow(ctx context.Context, bucket, key string) (bool, error)
}

// Gateway buckets. ProfileFetch is keyed per user and guards the members
// API behind the gate; AuthRedirect is keyed per IP and caps auth-failure
// redirects to /login.
const (
	BucketDecision     = "authz_decision"
	BucketAuditRecent  = "audit_recent"
	BucketProfileFetch = "profile_fetch"
	BucketAuthRedirect = "auth_redirect"
)

// DefaultLimits is the limit table used when the operator configures none.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		BucketDecision:     {Limit: 120, Window: time.Minute},
		BucketAuditRecent:  {Limit: 30, Window: time.Minute},
		BucketProfileFetch: {Limit: 60, Window: time.Minute},
		BucketAuthRedirect: {Limit: 30, Window: time.Minute},
		"default":          {Limit: 100, Window: time.Minute},
	}
}
