// Package config loads gateway settings from the environment.
package config

import (
	"os"
	"strings"
	"time"
)

// Config holds every operator-tunable setting. Optional integrations
// (Postgres audit, Redis) activate when their URL is present.
type Config struct {
	Port       string
	Env        string
	APIBase    string
	AdminEmail string

	// UpstreamURL switches the gateway into reverse-proxy mode: allowed
	// requests are forwarded there. Empty means forward-auth mode (allowed
	// requests answer 204 and the fronting proxy does the forwarding).
	UpstreamURL string

	SupabaseURL       string
	SupabaseJWTSecret string

	DatabaseURL string
	RedisURL    string

	ProfileCacheTTL    time.Duration
	MemberFetchTimeout time.Duration
	AuditRetention     time.Duration
}

// Load reads configuration from environment variables, applying defaults.
func Load() Config {
	return Config{
		Port:       envOr("PORT", "8080"),
		Env:        strings.ToLower(envOr("ENV", "development")),
		APIBase:    envOr("API_BASE_URL", "http://localhost:8000"),
		AdminEmail: os.Getenv("ADMIN_EMAIL"),

		UpstreamURL: os.Getenv("UPSTREAM_URL"),

		SupabaseURL:       os.Getenv("SUPABASE_URL"),
		SupabaseJWTSecret: os.Getenv("SUPABASE_JWT_SECRET"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		ProfileCacheTTL:    durationOr("PROFILE_CACHE_TTL", 30*time.Second),
		MemberFetchTimeout: durationOr("MEMBER_FETCH_TIMEOUT", 5*time.Second),
		AuditRetention:     durationOr("AUDIT_RETENTION", 90*24*time.Hour),
	}
}

// Prod reports whether the gateway runs in a production environment.
func (c Config) Prod() bool {
	return c.Env == "production" || c.Env == "prod"
}

// JWKSURL is the Supabase project's published key set, used when no shared
// JWT secret is configured.
func (c Config) JWKSURL() string {
	if c.SupabaseURL == "" {
		return ""
	}
	return strings.TrimRight(c.SupabaseURL, "/") + "/auth/v1/.well-known/jwks.json"
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func durationOr(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
