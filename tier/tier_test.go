package tier

import (
	"testing"
	"time"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func iso(t time.Time) string { return t.Format(time.RFC3339) }

func TestMemberTiers_Defaults(t *testing.T) {
	cases := []struct {
		name string
		m    *Member
		want []Tier
	}{
		{"nil member", nil, []Tier{Community}},
		{"no membership", &Member{}, []Tier{Community}},
		{"empty membership", &Member{Membership: &Membership{}}, []Tier{Community}},
		{"primary only", &Member{Membership: &Membership{PrimaryTier: "Club"}}, []Tier{Club}},
		{
			"active tiers win over primary",
			&Member{Membership: &Membership{PrimaryTier: "community", ActiveTiers: []string{"CLUB", "academy"}}},
			[]Tier{Club, Academy},
		},
	}
	for _, tc := range cases {
		got := MemberTiers(tc.m)
		if len(got) != len(tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
			}
		}
	}
}

func TestNilMember_AllDefaults(t *testing.T) {
	if got := PrimaryTier(nil); got != Community {
		t.Fatalf("PrimaryTier(nil) = %q, want community", got)
	}
	if got := RequestedTiers(nil); len(got) != 0 {
		t.Fatalf("RequestedTiers(nil) = %v, want empty", got)
	}
	if HasTier(nil, Club) {
		t.Fatal("HasTier(nil, club) = true")
	}
	if !HasTier(nil, Community) {
		t.Fatal("HasTier(nil, community) = false, want true (default tier)")
	}
	if Paid(nil, Community, now) {
		t.Fatal("Paid(nil) = true")
	}
	if got := EffectiveTier(nil, now); got != Community {
		t.Fatalf("EffectiveTier(nil) = %q, want community", got)
	}
	if got := MembershipLabel(nil, now); got != "Community Member" {
		t.Fatalf("MembershipLabel(nil) = %q, want %q", got, "Community Member")
	}
}

func TestPrimaryTier_ExplicitWinsOverActive(t *testing.T) {
	m := &Member{Membership: &Membership{
		PrimaryTier: "community",
		ActiveTiers: []string{"academy"},
	}}
	if got := PrimaryTier(m); got != Community {
		t.Fatalf("PrimaryTier = %q, want explicit primary community", got)
	}
}

func TestPrimaryTier_DerivedHighestPriority(t *testing.T) {
	m := &Member{Membership: &Membership{ActiveTiers: []string{"community", "club"}}}
	if got := PrimaryTier(m); got != Club {
		t.Fatalf("PrimaryTier = %q, want club", got)
	}
}

func TestPaid_StrictBoundary(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want bool
	}{
		{"absent", "", false},
		{"past", iso(now.Add(-time.Hour)), false},
		{"exactly now", iso(now), false},
		{"future", iso(now.Add(time.Hour)), true},
		{"malformed", "not-a-date", false},
		{"zoneless future", now.Add(time.Hour).Format("2006-01-02T15:04:05"), true},
	}
	for _, tc := range cases {
		m := &Member{Membership: &Membership{CommunityPaidUntil: tc.raw}}
		if got := Paid(m, Community, now); got != tc.want {
			t.Fatalf("%s: Paid = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestPaid_UnknownTier(t *testing.T) {
	m := &Member{Membership: &Membership{CommunityPaidUntil: iso(now.Add(time.Hour))}}
	if Paid(m, Tier("platinum"), now) {
		t.Fatal("unknown tier reported paid")
	}
}

func TestEffectiveTier_PriorityAndFallback(t *testing.T) {
	future := iso(now.Add(24 * time.Hour))
	past := iso(now.Add(-24 * time.Hour))

	// Both club and academy active: academy wins.
	m := &Member{Membership: &Membership{
		ActiveTiers:      []string{"club", "academy"},
		ClubPaidUntil:    future,
		AcademyPaidUntil: future,
	}}
	if got := EffectiveTier(m, now); got != Academy {
		t.Fatalf("EffectiveTier = %q, want academy", got)
	}

	// Nothing paid: falls back to approved primary, not an error.
	m = &Member{Membership: &Membership{
		PrimaryTier:   "club",
		ActiveTiers:   []string{"club"},
		ClubPaidUntil: past,
	}}
	if got := EffectiveTier(m, now); got != Club {
		t.Fatalf("EffectiveTier unpaid fallback = %q, want club", got)
	}

	// Absent academy timestamp is unpaid, so club carries.
	m = &Member{Membership: &Membership{
		ActiveTiers:   []string{"club", "academy"},
		ClubPaidUntil: future,
	}}
	if got := EffectiveTier(m, now); got != Club {
		t.Fatalf("EffectiveTier absent academy = %q, want club", got)
	}
}

func TestEffectiveTier_Idempotent(t *testing.T) {
	m := &Member{Membership: &Membership{
		ActiveTiers:   []string{"club"},
		ClubPaidUntil: iso(now.Add(time.Hour)),
	}}
	a := EffectiveTier(m, now)
	b := EffectiveTier(m, now)
	if a != b {
		t.Fatalf("EffectiveTier not idempotent: %q then %q", a, b)
	}
}

func TestSortByPriority(t *testing.T) {
	got := SortByPriority([]Tier{"community", "academy", "club"})
	want := []Tier{Academy, Club, Community}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SortByPriority = %v, want %v", got, want)
		}
	}

	// Unknown names sort last and keep relative order.
	got = SortByPriority([]Tier{"zzz", "club", "aaa", "academy"})
	want = []Tier{Academy, Club, "zzz", "aaa"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SortByPriority with unknowns = %v, want %v", got, want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[Tier]string{
		"club":      "Club",
		"ACADEMY":   "Academy",
		"coMMunity": "Community",
		"":          "",
	}
	for in, want := range cases {
		if got := DisplayName(in); got != want {
			t.Fatalf("DisplayName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMembershipLabel(t *testing.T) {
	future := iso(now.Add(24 * time.Hour))

	// Club requested, community active: pending state wins over the badge.
	m := &Member{Membership: &Membership{
		ActiveTiers:        []string{"community"},
		RequestedTiers:     []string{"club"},
		CommunityPaidUntil: future,
	}}
	if got := MembershipLabel(m, now); got != "Club (Pending)" {
		t.Fatalf("MembershipLabel = %q, want %q", got, "Club (Pending)")
	}

	// Academy pending outranks club pending.
	m = &Member{Membership: &Membership{
		RequestedTiers: []string{"club", "academy"},
	}}
	if got := MembershipLabel(m, now); got != "Academy (Pending)" {
		t.Fatalf("MembershipLabel = %q, want %q", got, "Academy (Pending)")
	}

	// Requested tier already active: plain member badge.
	m = &Member{Membership: &Membership{
		ActiveTiers:    []string{"club"},
		RequestedTiers: []string{"club"},
		ClubPaidUntil:  future,
	}}
	if got := MembershipLabel(m, now); got != "Club Member" {
		t.Fatalf("MembershipLabel = %q, want %q", got, "Club Member")
	}
}

func TestHasRequestedTier(t *testing.T) {
	m := &Member{Membership: &Membership{RequestedTiers: []string{"Academy"}}}
	if !HasRequestedTier(m, Academy) {
		t.Fatal("requested academy not detected")
	}
	if HasRequestedTier(m, Club) {
		t.Fatal("club falsely reported requested")
	}
}
