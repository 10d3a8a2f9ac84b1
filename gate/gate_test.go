package gate

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/swimbuddz/membership-gateway/members"
	"github.com/swimbuddz/membership-gateway/tier"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

func iso(t time.Time) string { return t.Format(time.RFC3339) }

func fixedSource(m *tier.Member, err error) MemberSource {
	return MemberSourceFunc(func(ctx context.Context, userID, accessToken string) (*tier.Member, error) {
		return m, err
	})
}

func newEngine(adminEmail string, m *tier.Member, err error) *Engine {
	return New(Config{AdminEmail: adminEmail}, fixedSource(m, err), WithClock(clock))
}

func loggedIn(email string) Authn {
	return Authn{User: &User{ID: "u_1", Email: email}, AccessToken: "tok"}
}

func TestAnonymousMemberRoute_RedirectsToLogin(t *testing.T) {
	e := newEngine("", nil, nil)
	d := e.Evaluate(context.Background(), Authn{}, "/account/profile", "")
	if d.Allow {
		t.Fatal("anonymous request allowed")
	}
	want := "/login?error=not_logged_in&redirect=%2Faccount%2Fprofile"
	if d.Redirect != want {
		t.Fatalf("redirect = %q, want %q", d.Redirect, want)
	}
}

func TestAnonymousLogin_PreservesQuery(t *testing.T) {
	e := newEngine("", nil, nil)
	d := e.Evaluate(context.Background(), Authn{}, "/sessions/123", "tab=next")
	want := "/login?error=not_logged_in&redirect=" + "%2Fsessions%2F123%3Ftab%3Dnext"
	if d.Redirect != want {
		t.Fatalf("redirect = %q, want %q", d.Redirect, want)
	}
}

func TestPublicLanding_AnonymousAllowed(t *testing.T) {
	e := newEngine("", nil, nil)
	for _, path := range []string{"/community", "/club", "/academy", "/sessions"} {
		d := e.Evaluate(context.Background(), Authn{}, path, "")
		if !d.Allow || d.Reason != ReasonPublicLanding {
			t.Fatalf("%s: got %+v, want public landing allow", path, d)
		}
	}
	// Sub-paths are not landing pages.
	d := e.Evaluate(context.Background(), Authn{}, "/club/training-plan", "")
	if d.Allow {
		t.Fatalf("/club/training-plan allowed anonymously: %+v", d)
	}
}

func TestUnmatchedPath_PassesThrough(t *testing.T) {
	e := newEngine("", nil, nil)
	for _, path := range []string{"/", "/about", "/register", "/clubhouse"} {
		d := e.Evaluate(context.Background(), Authn{}, path, "")
		if !d.Allow || d.Reason != ReasonPassthrough {
			t.Fatalf("%s: got %+v, want passthrough", path, d)
		}
	}
}

func TestPendingApproval_RedirectsToPendingPage(t *testing.T) {
	m := &tier.Member{ApprovalStatus: "pending"}
	e := newEngine("", m, nil)
	d := e.Evaluate(context.Background(), loggedIn("swimmer@example.com"), "/sessions", "")
	if d.Redirect != "/register/pending" {
		t.Fatalf("redirect = %q, want /register/pending", d.Redirect)
	}

	m.ApprovalStatus = "rejected"
	d = e.Evaluate(context.Background(), loggedIn("swimmer@example.com"), "/attendance", "")
	if d.Redirect != "/register/pending" {
		t.Fatalf("rejected: redirect = %q, want /register/pending", d.Redirect)
	}
}

func TestCommunityPaywall(t *testing.T) {
	m := &tier.Member{ApprovalStatus: "approved", Membership: &tier.Membership{
		PrimaryTier:        "community",
		CommunityPaidUntil: iso(testNow.Add(-24 * time.Hour)),
	}}
	e := newEngine("", m, nil)

	// Lapsed payment blocks member areas...
	d := e.Evaluate(context.Background(), loggedIn("swimmer@example.com"), "/sessions", "")
	if d.Redirect != "/account/billing?required=community" {
		t.Fatalf("redirect = %q, want community billing", d.Redirect)
	}

	// ...but /account stays reachable so the member can pay.
	d = e.Evaluate(context.Background(), loggedIn("swimmer@example.com"), "/account/settings", "")
	if !d.Allow {
		t.Fatalf("/account/settings blocked by paywall: %+v", d)
	}
}

func TestClubMemberOnAcademyRoute_UpgradeRedirect(t *testing.T) {
	m := &tier.Member{ApprovalStatus: "approved", Membership: &tier.Membership{
		ActiveTiers:        []string{"club"},
		ClubPaidUntil:      iso(testNow.Add(24 * time.Hour)),
		CommunityPaidUntil: iso(testNow.Add(-24 * time.Hour)),
	}}
	e := newEngine("", m, nil)
	d := e.Evaluate(context.Background(), loggedIn("swimmer@example.com"), "/academy", "")
	if d.Redirect != "/register?upgrade=true" {
		t.Fatalf("redirect = %q, want /register?upgrade=true", d.Redirect)
	}
}

func TestAcademyRequested_PendingRedirect(t *testing.T) {
	m := &tier.Member{ApprovalStatus: "approved", Membership: &tier.Membership{
		ActiveTiers:        []string{"club"},
		RequestedTiers:     []string{"academy"},
		ClubPaidUntil:      iso(testNow.Add(24 * time.Hour)),
		CommunityPaidUntil: iso(testNow.Add(24 * time.Hour)),
	}}
	e := newEngine("", m, nil)
	d := e.Evaluate(context.Background(), loggedIn("swimmer@example.com"), "/academy/schedule", "")
	if d.Redirect != "/account/profile?upgrade=pending" {
		t.Fatalf("redirect = %q, want upgrade pending", d.Redirect)
	}
}

func TestClubApprovedUnpaid_BillingRedirect(t *testing.T) {
	m := &tier.Member{ApprovalStatus: "approved", Membership: &tier.Membership{
		ActiveTiers:        []string{"community", "club"},
		ClubPaidUntil:      iso(testNow.Add(-time.Hour)),
		CommunityPaidUntil: iso(testNow.Add(24 * time.Hour)),
	}}
	e := newEngine("", m, nil)
	d := e.Evaluate(context.Background(), loggedIn("swimmer@example.com"), "/club/lanes", "")
	if d.Redirect != "/account/billing?required=club" {
		t.Fatalf("redirect = %q, want club billing", d.Redirect)
	}
}

func TestActiveMember_Allowed(t *testing.T) {
	m := &tier.Member{ApprovalStatus: "approved", Membership: &tier.Membership{
		ActiveTiers:        []string{"community"},
		CommunityPaidUntil: iso(testNow.Add(24 * time.Hour)),
	}}
	e := newEngine("", m, nil)
	for _, path := range []string{"/sessions", "/sessions/42", "/community/events", "/attendance"} {
		d := e.Evaluate(context.Background(), loggedIn("swimmer@example.com"), path, "")
		if !d.Allow {
			t.Fatalf("%s: active community member denied: %+v", path, d)
		}
	}
}

func TestAdminEmailBypass_Absolute(t *testing.T) {
	// Profile fetch would fail; the email bypass must not care.
	e := newEngine("ops@swimbuddz.com", nil, errors.New("boom"))
	d := e.Evaluate(context.Background(), loggedIn("OPS@swimbuddz.com"), "/admin/payments", "")
	if !d.Allow || d.Reason != ReasonAdminEmail {
		t.Fatalf("admin email bypass failed: %+v", d)
	}

	// Even without an access token.
	d = e.Evaluate(context.Background(), Authn{User: &User{ID: "u_9", Email: "ops@swimbuddz.com"}}, "/sessions", "")
	if !d.Allow {
		t.Fatalf("admin email bypass requires token: %+v", d)
	}
}

func TestAdminRole_Allowed(t *testing.T) {
	m := &tier.Member{ApprovalStatus: "approved", Role: "admin"}
	e := newEngine("", m, nil)
	d := e.Evaluate(context.Background(), loggedIn("coach@example.com"), "/admin/store", "")
	if !d.Allow || d.Reason != ReasonAdminRole {
		t.Fatalf("admin role not honored: %+v", d)
	}
}

func TestNonAdminOnAdminRoute_DeferredReason(t *testing.T) {
	m := &tier.Member{ApprovalStatus: "approved", Membership: &tier.Membership{
		ActiveTiers:        []string{"community"},
		CommunityPaidUntil: iso(testNow.Add(24 * time.Hour)),
	}}
	e := newEngine("", m, nil)
	d := e.Evaluate(context.Background(), loggedIn("swimmer@example.com"), "/admin/payments", "")
	if !d.Allow || d.Reason != ReasonAdminDeferred {
		t.Fatalf("got %+v, want admin deferred allow", d)
	}
}

func TestAdminRouteProfile404_Allowed(t *testing.T) {
	e := newEngine("", nil, members.ErrNotFound)
	d := e.Evaluate(context.Background(), loggedIn("staff@example.com"), "/admin/academy", "")
	if !d.Allow || d.Reason != ReasonAdminNoProfile {
		t.Fatalf("admin 404 not allowed: %+v", d)
	}

	// The same 404 on a member route fails closed.
	d = e.Evaluate(context.Background(), loggedIn("staff@example.com"), "/sessions", "")
	if d.Allow || d.Reason != ReasonAuthCheckFailed {
		t.Fatalf("member-route 404 should fail closed: %+v", d)
	}
}

func TestUpstreamFailures_FailClosed(t *testing.T) {
	// Non-OK status: auth_check_failed.
	e := newEngine("", nil, &members.StatusError{StatusCode: http.StatusBadGateway})
	d := e.Evaluate(context.Background(), loggedIn("swimmer@example.com"), "/sessions", "")
	if d.Allow || d.Reason != ReasonAuthCheckFailed {
		t.Fatalf("status error: %+v", d)
	}

	// Transport error: auth_check_error.
	e = newEngine("", nil, errors.New("connection refused"))
	d = e.Evaluate(context.Background(), loggedIn("swimmer@example.com"), "/sessions", "")
	if d.Allow || d.Reason != ReasonAuthCheckError {
		t.Fatalf("transport error: %+v", d)
	}
}

func TestMissingAccessToken(t *testing.T) {
	e := newEngine("", nil, nil)
	d := e.Evaluate(context.Background(), Authn{User: &User{ID: "u_1", Email: "swimmer@example.com"}}, "/sessions", "")
	if d.Allow || d.Reason != ReasonMissingToken {
		t.Fatalf("missing token: %+v", d)
	}
}
