// Package gate decides allow/redirect for every navigation into the gated
// areas of the SwimBuddz platform.
//
// The engine is a pure state machine over (authn, member record, path):
// no shared state, evaluated fresh per request. Its failure policy is
// fail-closed-to-login: any ambiguity about who the caller is denies
// access. Tier math is delegated to the tier package so display and gating
// can never disagree about what "paid" means.
package gate

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/swimbuddz/membership-gateway/members"
	"github.com/swimbuddz/membership-gateway/tier"
)

// User is the identity extracted from a verified session.
type User struct {
	ID    string
	Email string
}

// Authn is the authentication material accompanying a request. A nil User
// means no valid session. AccessToken may be empty even when User is set
// (a refreshed cookie pair missing its access half).
type Authn struct {
	User        *User
	AccessToken string
}

// MemberSource yields the member profile for an authenticated user.
// Implementations wrap the members API client, usually behind a short-TTL
// cache.
type MemberSource interface {
	Member(ctx context.Context, userID, accessToken string) (*tier.Member, error)
}

// MemberSourceFunc adapts a function to MemberSource.
type MemberSourceFunc func(ctx context.Context, userID, accessToken string) (*tier.Member, error)

func (f MemberSourceFunc) Member(ctx context.Context, userID, accessToken string) (*tier.Member, error) {
	return f(ctx, userID, accessToken)
}

// Reason tags a decision for logging and auditing.
type Reason string

const (
	ReasonPublicLanding   Reason = "public_landing"
	ReasonPassthrough     Reason = "passthrough"
	ReasonAdminEmail      Reason = "admin_email"
	ReasonAdminRole       Reason = "admin_role"
	ReasonAdminNoProfile  Reason = "admin_no_profile"
	ReasonAdminDeferred   Reason = "admin_deferred"
	ReasonMemberOK        Reason = "member_ok"
	ReasonNotLoggedIn     Reason = "not_logged_in"
	ReasonMissingToken    Reason = "missing_access_token"
	ReasonAuthCheckFailed Reason = "auth_check_failed"
	ReasonAuthCheckError  Reason = "auth_check_error"
	ReasonPendingApproval Reason = "pending_approval"
	ReasonCommunityUnpaid Reason = "community_unpaid"
	ReasonUpgradePending  Reason = "upgrade_pending"
	ReasonClubUnpaid      Reason = "club_unpaid"
	ReasonUpgradeRequired Reason = "upgrade_required"
)

// Decision is the gate's answer for one request.
type Decision struct {
	Allow    bool   `json:"allow"`
	Redirect string `json:"redirect,omitempty"`
	Reason   Reason `json:"reason"`

	// Member carries the fetched profile when one was loaded, so callers
	// can reuse it without a second fetch.
	Member *tier.Member `json:"-"`
}

func allow(reason Reason) Decision {
	return Decision{Allow: true, Reason: reason}
}

func redirect(target string, reason Reason) Decision {
	return Decision{Redirect: target, Reason: reason}
}

// Config holds the engine's operator settings.
type Config struct {
	// AdminEmail grants an absolute bypass to the matching session email,
	// case-insensitively. It skips every downstream check including
	// approval and payment; this is a deliberate operational backdoor.
	AdminEmail string
}

// Engine evaluates the route-gating state machine.
type Engine struct {
	cfg Config
	src MemberSource
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the evaluation clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New builds an engine over the given member source.
func New(cfg Config, src MemberSource, opts ...Option) *Engine {
	e := &Engine{cfg: cfg, src: src, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// loginRedirect builds the /login redirect carrying the failure code and
// the original path+query for post-login return.
func loginRedirect(code Reason, path, rawQuery string) Decision {
	back := path
	if rawQuery != "" {
		back += "?" + rawQuery
	}
	return redirect("/login?error="+string(code)+"&redirect="+url.QueryEscape(back), code)
}

// Evaluate runs the state machine for one request. path is the request path
// without query; rawQuery is the encoded query string, used only to build
// the post-login return target.
func (e *Engine) Evaluate(ctx context.Context, authn Authn, path, rawQuery string) Decision {
	// Marketing landing pages reuse gated prefixes: the bare path is open
	// to anonymous visitors. Authenticated members flow through the full
	// machine so approval, paywall, and tier state can route them.
	if isPublicLanding(path) && authn.User == nil {
		return allow(ReasonPublicLanding)
	}

	if !Matched(path) {
		return allow(ReasonPassthrough)
	}

	if authn.User == nil {
		return loginRedirect(ReasonNotLoggedIn, path, rawQuery)
	}

	// Admin-email bypass is absolute: no approval, payment, or profile
	// checks apply.
	if e.cfg.AdminEmail != "" && strings.EqualFold(authn.User.Email, e.cfg.AdminEmail) {
		return allow(ReasonAdminEmail)
	}

	if authn.AccessToken == "" {
		return loginRedirect(ReasonMissingToken, path, rawQuery)
	}

	member, err := e.src.Member(ctx, authn.User.ID, authn.AccessToken)
	if err != nil {
		if isAdminRoute(path) && errors.Is(err, members.ErrNotFound) {
			// Admin-only accounts have no member profile.
			return allow(ReasonAdminNoProfile)
		}
		var se *members.StatusError
		if errors.As(err, &se) {
			return loginRedirect(ReasonAuthCheckFailed, path, rawQuery)
		}
		return loginRedirect(ReasonAuthCheckError, path, rawQuery)
	}

	d := e.evaluateMember(member, path, rawQuery)
	d.Member = member
	return d
}

func (e *Engine) evaluateMember(member *tier.Member, path, rawQuery string) Decision {
	now := e.now()

	if member.Admin() {
		return allow(ReasonAdminRole)
	}

	switch member.ApprovalStatus {
	case "pending", "rejected":
		if path != "/register/pending" {
			return redirect("/register/pending", ReasonPendingApproval)
		}
	}

	// Community paywall: member areas (except billing/profile under
	// /account, which must stay reachable to fix the lapse) require an
	// active community payment. Tier-restricted content areas are governed
	// by the tier check below instead.
	if isMemberRoute(path) && !strings.HasPrefix(path, "/account") && !tier.Paid(member, tier.Community, now) {
		return redirect("/account/billing?required=community", ReasonCommunityUnpaid)
	}

	// Non-admin members reaching admin paths pass through for the admin
	// backend to authorize, under a distinct reason so the audit trail can
	// pick them out.
	if isAdminRoute(path) {
		return allow(ReasonAdminDeferred)
	}

	if route, ok := matchTierRoute(path); ok {
		effective := tier.EffectiveTier(member, now)
		if !route.allows(effective) {
			switch {
			case tier.HasRequestedTier(member, route.Required):
				// The upgrade is already requested; don't loop them
				// through registration again.
				return redirect("/account/profile?upgrade=pending", ReasonUpgradePending)
			case route.Required == tier.Club && tier.HasTier(member, tier.Club) && !tier.Active(member, tier.Club, now):
				return redirect("/account/billing?required=club", ReasonClubUnpaid)
			default:
				return redirect("/register?upgrade=true", ReasonUpgradeRequired)
			}
		}
	}

	return allow(ReasonMemberOK)
}
