package members

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/swimbuddz/membership-gateway/tier"
)

// ProfileCache holds recently fetched member profiles keyed by user id.
// Implementations must never return an entry past its TTL: a stale profile
// could carry denial-relevant state (lapsed payment, revoked approval).
type ProfileCache interface {
	Get(ctx context.Context, userID string) (*tier.Member, bool, error)
	Put(ctx context.Context, userID string, m *tier.Member) error
	Del(ctx context.Context, userID string) error
}

// CachedSource wraps Client with a short-TTL profile cache. Cache failures
// are best-effort: a broken cache degrades to per-request fetches, it never
// fails the lookup.
type CachedSource struct {
	Client *Client
	Cache  ProfileCache
	Log    *logrus.Logger
}

// Member returns the profile for the given user, from cache when fresh.
// Errors from the upstream fetch are returned as-is and never cached.
func (s *CachedSource) Member(ctx context.Context, userID, accessToken string) (*tier.Member, error) {
	if s.Cache != nil && userID != "" {
		if m, ok, err := s.Cache.Get(ctx, userID); err != nil {
			s.logf("profile cache get failed", err)
		} else if ok {
			return m, nil
		}
	}

	m, err := s.Client.Me(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil && userID != "" {
		if err := s.Cache.Put(ctx, userID, m); err != nil {
			s.logf("profile cache put failed", err)
		}
	}
	return m, nil
}

func (s *CachedSource) logf(msg string, err error) {
	if s.Log != nil {
		s.Log.WithError(err).Warn(msg)
	}
}
