// Package session verifies Supabase-issued access tokens locally, without
// a round trip to the auth server.
//
// Supabase projects sign sessions either with a shared HS256 secret (the
// legacy default) or with asymmetric keys published as JWKS. Both verifier
// flavors yield the same Claims.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	jwxjwt "github.com/lestrrat-go/jwx/v2/jwt"
)

// Claims is the identity extracted from a verified session token.
type Claims struct {
	UserID string
	Email  string
	Expiry time.Time
}

// ErrInvalidToken is returned for tokens that fail signature, expiry, or
// shape checks. The gate treats it as "not logged in".
var ErrInvalidToken = errors.New("session: invalid token")

// Verifier validates an access token and extracts claims.
type Verifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// HSVerifier verifies HS256 tokens against the project JWT secret.
type HSVerifier struct {
	secret   []byte
	audience string
}

// HSOption configures an HSVerifier.
type HSOption func(*HSVerifier)

// WithAudience requires the token's aud claim to contain the given value.
// Supabase session tokens carry aud "authenticated".
func WithAudience(aud string) HSOption {
	return func(v *HSVerifier) { v.audience = aud }
}

// NewHSVerifier builds a verifier over the Supabase project JWT secret.
func NewHSVerifier(secret string, opts ...HSOption) (*HSVerifier, error) {
	if secret == "" {
		return nil, errors.New("session: empty JWT secret")
	}
	v := &HSVerifier{secret: []byte(secret)}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify checks signature and expiry and pulls out subject and email.
func (v *HSVerifier) Verify(_ context.Context, token string) (Claims, error) {
	parsed, err := gojwt.Parse(token, func(t *gojwt.Token) (any, error) {
		return v.secret, nil
	}, gojwt.WithValidMethods([]string{"HS256"}), gojwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	mc, ok := parsed.Claims.(gojwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	if v.audience != "" {
		if !audContains(mc, v.audience) {
			return Claims{}, fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
		}
	}
	return claimsFromMap(mc)
}

func audContains(mc gojwt.MapClaims, want string) bool {
	auds, err := mc.GetAudience()
	if err != nil {
		return false
	}
	for _, a := range auds {
		if a == want {
			return true
		}
	}
	return false
}

func claimsFromMap(mc gojwt.MapClaims) (Claims, error) {
	sub, err := mc.GetSubject()
	if err != nil || sub == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	c := Claims{UserID: sub}
	if email, ok := mc["email"].(string); ok {
		c.Email = email
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.Expiry = exp.Time
	}
	return c, nil
}

// JWKSVerifier verifies tokens against the project's published JWKS,
// refreshing keys in the background.
type JWKSVerifier struct {
	set jwk.Set
}

// NewJWKSVerifier starts a cached key set over the given JWKS URL. The ctx
// bounds the background refresh loop.
func NewJWKSVerifier(ctx context.Context, jwksURL string) (*JWKSVerifier, error) {
	cache := jwk.NewCache(ctx)
	if err := cache.Register(jwksURL, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
		return nil, fmt.Errorf("session: register jwks %s: %w", jwksURL, err)
	}
	if _, err := cache.Refresh(ctx, jwksURL); err != nil {
		return nil, fmt.Errorf("session: fetch jwks %s: %w", jwksURL, err)
	}
	return &JWKSVerifier{set: jwk.NewCachedSet(cache, jwksURL)}, nil
}

// Verify validates the token against the cached key set.
func (v *JWKSVerifier) Verify(ctx context.Context, token string) (Claims, error) {
	parsed, err := jwxjwt.ParseString(
		token,
		jwxjwt.WithKeySet(v.set),
		jwxjwt.WithValidate(true),
		jwxjwt.WithContext(ctx),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	sub := parsed.Subject()
	if sub == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	c := Claims{UserID: sub, Expiry: parsed.Expiration()}
	if raw, ok := parsed.Get("email"); ok {
		if email, ok := raw.(string); ok {
			c.Email = email
		}
	}
	return c, nil
}
