// Package tier derives membership-tier facts from a member record.
//
// All functions are pure and total over a possibly-nil member: missing or
// malformed membership data never panics, it degrades to the community tier.
// This fail-open-to-community policy is for display and derivation only;
// authoritative access control lives in the gate package, which fails closed.
package tier

import (
	"strings"
	"time"
)

// Tier is a membership entitlement level.
type Tier string

const (
	Community Tier = "community"
	Club      Tier = "club"
	Academy   Tier = "academy"
)

// byPriority lists tiers highest first. This ordering is a fixed domain
// invariant; callers must not assume alphabetical or insertion order.
var byPriority = []Tier{Academy, Club, Community}

// Priority returns the tier's rank (academy=3 > club=2 > community=1).
// Unrecognized tiers rank 0.
func (t Tier) Priority() int {
	switch t {
	case Academy:
		return 3
	case Club:
		return 2
	case Community:
		return 1
	}
	return 0
}

// Parse normalizes a raw tier name. Unknown names pass through lower-cased
// so they can still be displayed and sorted (at priority 0).
func Parse(s string) Tier {
	return Tier(strings.ToLower(strings.TrimSpace(s)))
}

// Membership is the membership sub-record of a member, as served by the
// members API. Paid-until fields are ISO-8601 strings; parse failures are
// treated as unpaid rather than surfaced as errors.
type Membership struct {
	PrimaryTier        string   `json:"primary_tier,omitempty"`
	ActiveTiers        []string `json:"active_tiers,omitempty"`
	RequestedTiers     []string `json:"requested_tiers,omitempty"`
	CommunityPaidUntil string   `json:"community_paid_until,omitempty"`
	ClubPaidUntil      string   `json:"club_paid_until,omitempty"`
	AcademyPaidUntil   string   `json:"academy_paid_until,omitempty"`
}

// Member is the member record consumed from the members API. The gateway
// reads it per-request and never owns or mutates it.
type Member struct {
	ID             string      `json:"id,omitempty"`
	Email          string      `json:"email,omitempty"`
	ApprovalStatus string      `json:"approval_status,omitempty"`
	Role           string      `json:"role,omitempty"`
	IsAdmin        bool        `json:"is_admin,omitempty"`
	Membership     *Membership `json:"membership,omitempty"`
}

// Admin reports whether the member record carries an admin marker.
func (m *Member) Admin() bool {
	if m == nil {
		return false
	}
	return m.IsAdmin || strings.EqualFold(m.Role, "admin")
}

// PaidUntil returns the parsed paid-through instant for the given tier.
// ok is false when the timestamp is absent, malformed, or the tier unknown.
func (m *Member) PaidUntil(t Tier) (time.Time, bool) {
	if m == nil || m.Membership == nil {
		return time.Time{}, false
	}
	var raw string
	switch t {
	case Community:
		raw = m.Membership.CommunityPaidUntil
	case Club:
		raw = m.Membership.ClubPaidUntil
	case Academy:
		raw = m.Membership.AcademyPaidUntil
	default:
		return time.Time{}, false
	}
	return parseInstant(raw)
}

// parseInstant accepts RFC 3339 with or without a zone offset; zoneless
// timestamps are taken as UTC.
func parseInstant(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, true
	}
	if ts, err := time.Parse("2006-01-02T15:04:05", raw); err == nil {
		return ts.UTC(), true
	}
	return time.Time{}, false
}

// MemberTiers returns the tiers the member is approved for: lower-cased
// active_tiers if non-empty, else the primary tier, else community.
func MemberTiers(m *Member) []Tier {
	if m != nil && m.Membership != nil {
		if len(m.Membership.ActiveTiers) > 0 {
			out := make([]Tier, 0, len(m.Membership.ActiveTiers))
			for _, s := range m.Membership.ActiveTiers {
				out = append(out, Parse(s))
			}
			return out
		}
		if strings.TrimSpace(m.Membership.PrimaryTier) != "" {
			return []Tier{Parse(m.Membership.PrimaryTier)}
		}
	}
	return []Tier{Community}
}

// PrimaryTier returns the explicit primary tier when set, even when it
// disagrees with active_tiers; otherwise the highest-priority approved tier.
func PrimaryTier(m *Member) Tier {
	if m != nil && m.Membership != nil && strings.TrimSpace(m.Membership.PrimaryTier) != "" {
		return Parse(m.Membership.PrimaryTier)
	}
	tiers := SortByPriority(MemberTiers(m))
	return tiers[0]
}

// RequestedTiers returns tiers with a pending upgrade request, or an empty
// slice.
func RequestedTiers(m *Member) []Tier {
	if m == nil || m.Membership == nil || len(m.Membership.RequestedTiers) == 0 {
		return []Tier{}
	}
	out := make([]Tier, 0, len(m.Membership.RequestedTiers))
	for _, s := range m.Membership.RequestedTiers {
		out = append(out, Parse(s))
	}
	return out
}

// HasTier reports whether the member is approved for the given tier.
func HasTier(m *Member, t Tier) bool {
	for _, have := range MemberTiers(m) {
		if have == t {
			return true
		}
	}
	return false
}

// HasRequestedTier reports whether the member has a pending request for the
// given tier.
func HasRequestedTier(m *Member, t Tier) bool {
	for _, have := range RequestedTiers(m) {
		if have == t {
			return true
		}
	}
	return false
}

// Paid reports whether the tier's paid-until timestamp is strictly after
// now. Absent or unparseable timestamps are unpaid; there is no grace
// period. This is the single absent-timestamp policy shared by display and
// gating paths.
func Paid(m *Member, t Tier, now time.Time) bool {
	until, ok := m.PaidUntil(t)
	return ok && until.After(now)
}

// Active reports whether the member is approved for and currently paid on
// the given tier.
func Active(m *Member, t Tier, now time.Time) bool {
	return HasTier(m, t) && Paid(m, t, now)
}

// EffectiveTier returns the highest-priority active tier. When nothing is
// active it falls back to the approved primary tier, so an unpaid member
// still resolves to a tier for display purposes even though the gate will
// reject them.
func EffectiveTier(m *Member, now time.Time) Tier {
	for _, t := range byPriority {
		if Active(m, t, now) {
			return t
		}
	}
	return PrimaryTier(m)
}

// DisplayName capitalizes a tier name for UI labels. Input case is
// irrelevant.
func DisplayName(t Tier) string {
	s := strings.ToLower(string(t))
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// SortByPriority returns a new slice sorted by descending tier priority.
// The sort is stable; unrecognized tier names keep their relative order at
// the end.
func SortByPriority(tiers []Tier) []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Priority() > out[j-1].Priority(); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// MembershipLabel renders the account-page membership badge. A requested
// academy or club upgrade that is not yet active shows as pending; there is
// no community-pending state because community has no approval step.
func MembershipLabel(m *Member, now time.Time) string {
	if HasRequestedTier(m, Academy) && !Active(m, Academy, now) {
		return "Academy (Pending)"
	}
	if HasRequestedTier(m, Club) && !Active(m, Club, now) {
		return "Club (Pending)"
	}
	return DisplayName(EffectiveTier(m, now)) + " Member"
}
