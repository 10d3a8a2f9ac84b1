// Package gatetest provides fixtures for testing code that sits behind the
// gateway: a Supabase-shaped token issuer and a mock members API.
//
// Example usage:
//
//	issuer := gatetest.NewIssuer()
//	api := gatetest.NewMembersAPI()
//	defer api.Close()
//
//	tok := issuer.Token("user-123", "swimmer@example.com")
//	api.SetMember(tok, &tier.Member{ApprovalStatus: "approved"})
package gatetest

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/swimbuddz/membership-gateway/session"
	"github.com/swimbuddz/membership-gateway/tier"
)

// Issuer signs HS256 session tokens the way a Supabase project would.
type Issuer struct {
	secret string
}

// NewIssuer creates an issuer with a random signing secret.
func NewIssuer() *Issuer {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("gatetest: generate secret: " + err.Error())
	}
	return &Issuer{secret: hex.EncodeToString(b)}
}

// Secret returns the signing secret, for configuring the verifier.
func (i *Issuer) Secret() string { return i.secret }

// Verifier returns a session verifier wired to this issuer's secret.
func (i *Issuer) Verifier() session.Verifier {
	v, err := session.NewHSVerifier(i.secret, session.WithAudience("authenticated"))
	if err != nil {
		panic("gatetest: build verifier: " + err.Error())
	}
	return v
}

// Token signs a session token for the given user, valid for one hour.
func (i *Issuer) Token(userID, email string) string {
	return i.TokenWithExpiry(userID, email, time.Now().Add(time.Hour))
}

// TokenWithExpiry signs a session token with a custom expiry.
func (i *Issuer) TokenWithExpiry(userID, email string, expiry time.Time) string {
	claims := gojwt.MapClaims{
		"sub":   userID,
		"email": email,
		"aud":   "authenticated",
		"iat":   time.Now().Unix(),
		"exp":   expiry.Unix(),
	}
	tok := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(i.secret))
	if err != nil {
		panic("gatetest: sign token: " + err.Error())
	}
	return s
}

// ExpiredToken signs a token that has already expired.
func (i *Issuer) ExpiredToken(userID, email string) string {
	return i.TokenWithExpiry(userID, email, time.Now().Add(-time.Hour))
}

// MembersAPI is an httptest server mimicking GET /api/v1/members/me.
// Member records are keyed by bearer token; unknown tokens get 404.
type MembersAPI struct {
	server *httptest.Server

	mu          sync.Mutex
	members     map[string]*tier.Member
	forceStatus int
}

// NewMembersAPI starts the mock server. Call Close when done.
func NewMembersAPI() *MembersAPI {
	api := &MembersAPI{members: map[string]*tier.Member{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/members/me", api.handleMe)
	api.server = httptest.NewServer(mux)
	return api
}

// URL returns the mock API's base URL.
func (a *MembersAPI) URL() string { return a.server.URL }

// Close shuts down the server.
func (a *MembersAPI) Close() { a.server.Close() }

// SetMember registers the profile returned for the given bearer token.
func (a *MembersAPI) SetMember(token string, m *tier.Member) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.members[token] = m
}

// ForceStatus makes every subsequent request answer with the given status.
// Pass 0 to restore normal behavior.
func (a *MembersAPI) ForceStatus(code int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.forceStatus = code
}

func (a *MembersAPI) handleMe(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	force := a.forceStatus
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	m, ok := a.members[token]
	a.mu.Unlock()

	if force != 0 {
		w.WriteHeader(force)
		return
	}
	if token == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(m)
}
