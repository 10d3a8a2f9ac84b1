// Package audit records gate decisions to an external sink.
// Recording is best-effort and must never affect the decision itself.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/swimbuddz/membership-gateway/gate"
)

// Event is one recorded gate decision.
type Event struct {
	ID       uuid.UUID `json:"id"`
	UserID   string    `json:"user_id,omitempty"`
	Email    string    `json:"email,omitempty"`
	Path     string    `json:"path"`
	Allowed  bool      `json:"allowed"`
	Reason   string    `json:"reason"`
	Redirect string    `json:"redirect,omitempty"`
	At       time.Time `json:"at"`
}

// NewEvent builds an Event from a decision.
func NewEvent(authn gate.Authn, path string, d gate.Decision, at time.Time) Event {
	ev := Event{
		ID:       uuid.New(),
		Path:     path,
		Allowed:  d.Allow,
		Reason:   string(d.Reason),
		Redirect: d.Redirect,
		At:       at.UTC(),
	}
	if authn.User != nil {
		ev.UserID = authn.User.ID
		ev.Email = authn.User.Email
	}
	return ev
}

// Recorder persists events. Implementations should be non-blocking and
// best-effort; callers log and drop errors.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// NopRecorder discards every event. Used when no database is configured.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Event) error { return nil }
