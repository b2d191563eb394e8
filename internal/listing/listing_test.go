package listing

import (
	"testing"
	"time"
)

func TestParseSectionTier(t *testing.T) {
	cases := map[string]SectionTier{
		"PREMIUM":         TierPremium,
		"premium":         TierPremium,
		"  Floor  ":       TierPremium,
		"UPPER_PREMIUM":   TierUpperPremium,
		"lower bowl":      TierUpperPremium,
		"MID_TIER":        TierMid,
		"mezzanine":       TierMid,
		"UPPER_LEVEL":     TierUpperLevel,
		"balcony":         TierUpperLevel,
		"OBSTRUCTED":      TierObstructed,
		"obstructed-view": TierObstructed,
		"limited view":    TierObstructed,
	}
	for label, want := range cases {
		got, err := ParseSectionTier(label)
		if err != nil {
			t.Fatalf("ParseSectionTier(%q) unexpected error: %v", label, err)
		}
		if got != want {
			t.Fatalf("ParseSectionTier(%q) = %v, want %v", label, got, want)
		}
	}
}

func TestParseSectionTierRejectsUnknown(t *testing.T) {
	for _, label := range []string{"", "vip-ish", "tier 6", "standing"} {
		if _, err := ParseSectionTier(label); err == nil {
			t.Fatalf("ParseSectionTier(%q) should fail fast", label)
		}
	}
}

func TestSectionTierOrdinalOrdering(t *testing.T) {
	tiers := []SectionTier{TierPremium, TierUpperPremium, TierMid, TierUpperLevel, TierObstructed}
	for i := 1; i < len(tiers); i++ {
		if tiers[i].Ordinal() <= tiers[i-1].Ordinal() {
			t.Fatal("tier ordinals must increase from best to worst")
		}
	}
	if SectionTier(9).Valid() {
		t.Fatal("out-of-domain tier must not validate")
	}
}

func TestEventDaysUntil(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	ev := Event{Date: now.Add(10 * 24 * time.Hour)}
	if got := ev.DaysUntil(now); got != 10 {
		t.Fatalf("expected 10 days, got %d", got)
	}

	past := Event{Date: now.Add(-3 * 24 * time.Hour)}
	if got := past.DaysUntil(now); got >= 0 {
		t.Fatalf("past event should yield negative days, got %d", got)
	}
}
