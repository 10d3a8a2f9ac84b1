// Package gategin adapts the gate engine to gin.
package gategin

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/swimbuddz/membership-gateway/audit"
	"github.com/swimbuddz/membership-gateway/gate"
	"github.com/swimbuddz/membership-gateway/ratelimit"
	"github.com/swimbuddz/membership-gateway/session"
)

const (
	ctxClaimsKey   = "gate.claims"
	ctxMemberKey   = "gate.member"
	ctxDecisionKey = "gate.decision"
)

// AccessTokenCookie is the Supabase access-token cookie name.
const AccessTokenCookie = "sb-access-token"

// GateConfig wires the middleware's collaborators.
type GateConfig struct {
	Engine   *gate.Engine
	Verifier session.Verifier
	Audit    audit.Recorder
	Limiter  ratelimit.Limiter
	Log      *logrus.Logger
}

// AccessToken extracts the session token from the Authorization header or
// the Supabase auth cookie.
func AccessToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if ck, err := r.Cookie(AccessTokenCookie); err == nil {
		return ck.Value
	}
	return ""
}

// Authn verifies the request's session material. An invalid or expired
// token yields an anonymous Authn, never an error: the engine decides what
// anonymity means for the route.
func (cfg GateConfig) Authn(c *gin.Context) gate.Authn {
	tok := AccessToken(c.Request)
	if tok == "" {
		return gate.Authn{}
	}
	claims, err := cfg.Verifier.Verify(c.Request.Context(), tok)
	if err != nil {
		if cfg.Log != nil {
			cfg.Log.WithError(err).Debug("session token rejected")
		}
		return gate.Authn{}
	}
	c.Set(ctxClaimsKey, claims)
	return gate.Authn{
		User:        &gate.User{ID: claims.UserID, Email: claims.Email},
		AccessToken: tok,
	}
}

// Gate evaluates the route-gating engine for every request and either
// passes through or issues a 302.
func Gate(cfg GateConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authn := cfg.Authn(c)
		path := c.Request.URL.Path

		// Per-user budget on routes that can trigger a profile fetch, keyed
		// by user id. Unmatched paths never fetch and are not charged.
		if authn.User != nil && gate.Matched(path) &&
			!cfg.allowRate(c, ratelimit.BucketProfileFetch, authn.User.ID) {
			tooManyRequests(c)
			return
		}

		d := cfg.Engine.Evaluate(c.Request.Context(), authn, path, c.Request.URL.RawQuery)

		if d.Member != nil {
			c.Set(ctxMemberKey, d.Member)
		}
		c.Set(ctxDecisionKey, d)

		recordDecision(cfg, authn, path, d)

		if cfg.Log != nil {
			cfg.Log.WithFields(logrus.Fields{
				"path":     path,
				"allow":    d.Allow,
				"reason":   d.Reason,
				"redirect": d.Redirect,
			}).Debug("gate decision")
		}

		if d.Allow {
			c.Next()
			return
		}
		// Per-IP budget on auth-failure redirects, so a client stuck in a
		// redirect loop against /login gets cut off.
		if authFailure(d.Reason) && !cfg.allowRate(c, ratelimit.BucketAuthRedirect, c.ClientIP()) {
			tooManyRequests(c)
			return
		}
		c.Redirect(http.StatusFound, d.Redirect)
		c.Abort()
	}
}

func authFailure(r gate.Reason) bool {
	switch r {
	case gate.ReasonNotLoggedIn, gate.ReasonMissingToken,
		gate.ReasonAuthCheckFailed, gate.ReasonAuthCheckError:
		return true
	}
	return false
}

// allowRate consults the limiter. A nil limiter, empty key, or limiter
// failure all admit the request; limiting is protection, not access control.
func (cfg GateConfig) allowRate(c *gin.Context, bucket, key string) bool {
	if cfg.Limiter == nil || key == "" {
		return true
	}
	ok, err := cfg.Limiter.Allow(c.Request.Context(), bucket, key)
	if err != nil {
		if cfg.Log != nil {
			cfg.Log.WithError(err).Warn("rate limiter check failed")
		}
		return true
	}
	return ok
}

func tooManyRequests(c *gin.Context) {
	c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
	c.Abort()
}

// recordDecision audits denials and admin bypasses. Pass-through and
// ordinary member traffic would swamp the trail with noise.
func recordDecision(cfg GateConfig, authn gate.Authn, path string, d gate.Decision) {
	if cfg.Audit == nil {
		return
	}
	switch d.Reason {
	case gate.ReasonPassthrough, gate.ReasonPublicLanding, gate.ReasonMemberOK:
		return
	}
	ev := audit.NewEvent(authn, path, d, time.Now())
	// The recorder may outlive the request (queued insert), so it runs on
	// a context detached from the request's cancellation.
	if err := cfg.Audit.Record(context.Background(), ev); err != nil && cfg.Log != nil {
		cfg.Log.WithError(err).Warn("audit record failed")
	}
}
