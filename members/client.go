// Package members fetches member profiles from the SwimBuddz members API.
package members

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/swimbuddz/membership-gateway/tier"
)

// DefaultTimeout bounds the profile fetch so a hung upstream cannot stall
// navigation.
const DefaultTimeout = 5 * time.Second

// StatusError is returned when the members API answers with a non-2xx
// status. Transport failures are returned as plain wrapped errors instead,
// so callers can tell "upstream said no" from "upstream unreachable".
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("members api: unexpected status %d", e.StatusCode)
}

// Is matches two StatusErrors with the same code, so
// errors.Is(err, ErrNotFound) works.
func (e *StatusError) Is(target error) bool {
	t, ok := target.(*StatusError)
	return ok && t.StatusCode == e.StatusCode
}

// ErrNotFound is the members API's 404: the authenticated user has no
// member profile (e.g. an admin-only account).
var ErrNotFound = &StatusError{StatusCode: http.StatusNotFound}

// Client calls the members API with the caller's bearer token.
type Client struct {
	base string
	http *http.Client
}

// NewClient builds a client for the given API base URL (e.g.
// http://localhost:8000). A timeout <= 0 falls back to DefaultTimeout.
func NewClient(base string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// Me fetches the member profile belonging to the access token.
func (c *Client) Me(ctx context.Context, accessToken string) (*tier.Member, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/v1/members/me", nil)
	if err != nil {
		return nil, fmt.Errorf("members api: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("members api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	var m tier.Member
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("members api: decode profile: %w", err)
	}
	return &m, nil
}
