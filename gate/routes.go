package gate

import (
	"strings"

	"github.com/swimbuddz/membership-gateway/tier"
)

// publicExact lists marketing landing pages that reuse gated path prefixes.
// The bare path is open to anonymous visitors; sub-paths like /club/foo fall
// through to tier checking.
var publicExact = map[string]struct{}{
	"/community": {},
	"/club":      {},
	"/academy":   {},
	"/sessions":  {},
}

// memberPrefixes require a logged-in, approved, paywall-cleared member.
var memberPrefixes = []string{"/sessions", "/account", "/attendance"}

// adminPrefix requires the configured admin email or an admin member role.
const adminPrefix = "/admin"

// TierRoute maps a path prefix to the tiers allowed through it. Required is
// the tier a blocked member would need to acquire (drives the upgrade
// redirect).
type TierRoute struct {
	Prefix   string
	Allowed  []tier.Tier
	Required tier.Tier
}

// tierRoutes is the fixed allow-list table. Academy-only content sits under
// /academy; /community and /sessions admit every tier.
var tierRoutes = []TierRoute{
	{Prefix: "/academy", Allowed: []tier.Tier{tier.Academy}, Required: tier.Academy},
	{Prefix: "/club", Allowed: []tier.Tier{tier.Club, tier.Academy}, Required: tier.Club},
	{Prefix: "/community", Allowed: []tier.Tier{tier.Community, tier.Club, tier.Academy}, Required: tier.Community},
	{Prefix: "/sessions", Allowed: []tier.Tier{tier.Community, tier.Club, tier.Academy}, Required: tier.Community},
}

// MatchedPrefixes is the gateway's route matcher: only these prefixes are
// evaluated at all. Everything else passes through untouched.
var MatchedPrefixes = []string{
	"/community", "/club", "/academy", "/sessions", "/account", "/attendance", "/admin",
}

func hasPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	// /clubhouse must not match /club.
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

// Matched reports whether the path falls under the route matcher.
func Matched(path string) bool {
	for _, p := range MatchedPrefixes {
		if hasPrefix(path, p) {
			return true
		}
	}
	return false
}

func isPublicLanding(path string) bool {
	_, ok := publicExact[path]
	return ok
}

func isMemberRoute(path string) bool {
	for _, p := range memberPrefixes {
		if hasPrefix(path, p) {
			return true
		}
	}
	return false
}

func isAdminRoute(path string) bool {
	return hasPrefix(path, adminPrefix)
}

func matchTierRoute(path string) (TierRoute, bool) {
	for _, r := range tierRoutes {
		if hasPrefix(path, r.Prefix) {
			return r, true
		}
	}
	return TierRoute{}, false
}

func (r TierRoute) allows(t tier.Tier) bool {
	for _, a := range r.Allowed {
		if a == t {
			return true
		}
	}
	return false
}
