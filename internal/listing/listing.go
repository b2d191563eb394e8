package listing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SectionTier classifies a seating section's general desirability.
// Lower ordinal means a better seat class.
type SectionTier int

const (
	TierPremium      SectionTier = 1
	TierUpperPremium SectionTier = 2
	TierMid          SectionTier = 3
	TierUpperLevel   SectionTier = 4
	TierObstructed   SectionTier = 5
)

var tierNames = map[SectionTier]string{
	TierPremium:      "PREMIUM",
	TierUpperPremium: "UPPER_PREMIUM",
	TierMid:          "MID_TIER",
	TierUpperLevel:   "UPPER_LEVEL",
	TierObstructed:   "OBSTRUCTED",
}

// String returns the canonical tier label.
func (t SectionTier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TIER(%d)", int(t))
}

// Valid reports whether t is one of the five defined categories.
func (t SectionTier) Valid() bool {
	_, ok := tierNames[t]
	return ok
}

// Ordinal returns the 1-based tier ordinal.
func (t SectionTier) Ordinal() int {
	return int(t)
}

// ParseSectionTier converts loose upstream tier text into the closed
// category set. Unknown labels are rejected here so scoring code never
// sees an out-of-domain tier.
func ParseSectionTier(label string) (SectionTier, error) {
	normalized := strings.ToUpper(strings.TrimSpace(label))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")

	switch normalized {
	case "PREMIUM", "FLOOR", "LOWER_PREMIUM":
		return TierPremium, nil
	case "UPPER_PREMIUM", "LOWER_BOWL", "CLUB":
		return TierUpperPremium, nil
	case "MID_TIER", "MID", "MEZZANINE":
		return TierMid, nil
	case "UPPER_LEVEL", "UPPER", "BALCONY", "UPPER_BOWL":
		return TierUpperLevel, nil
	case "OBSTRUCTED", "OBSTRUCTED_VIEW", "LIMITED_VIEW":
		return TierObstructed, nil
	}
	return 0, fmt.Errorf("unknown section tier %q", label)
}

// Listing is a normalized resale listing for one event.
type Listing struct {
	Platform       string
	Section        string
	Row            string
	PricePerTicket decimal.Decimal
	Quantity       int
	Tier           SectionTier
	URL            string
}

// Event carries the demand context shared by all listings in a batch.
type Event struct {
	ID         string
	Name       string
	Venue      string
	Date       time.Time
	Popularity int
	// TotalRows overrides the per-tier row count estimate when the
	// venue layout is known. Zero means unknown.
	TotalRows int
}

// DaysUntil returns whole days between now and the event date.
// Past events yield negative values; the predictor clamps them.
func (e Event) DaysUntil(now time.Time) int {
	return int(e.Date.Sub(now).Hours() / 24)
}

// TopValueListing is one ranked alert candidate.
type TopValueListing struct {
	Rank           int
	Platform       string
	Section        string
	Row            string
	PricePerTicket decimal.Decimal
	Quantity       int
	ValueScore     int
	Recommendation string
	EstimatedROI   int
	ROIConfidence  string
	DeepLink       string
}
