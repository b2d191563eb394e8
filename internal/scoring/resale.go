package scoring

import (
	"math"

	"github.com/gouchan/seatsniper-sub001/internal/listing"
)

// Confidence tiers for ROI estimates. Exactly one applies per call.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// ROIEstimate is the resale upside prediction for a single listing.
type ROIEstimate struct {
	EstimatedROI int
	Confidence   string
}

// Timing sweet spot: soon enough for buying pressure, far enough out to
// avoid day-of panic pricing.
const (
	sweetSpotStartDays = 7
	sweetSpotEndDays   = 30
)

// tierDemandFactor weights demand by seat class; a premium section
// resells better than an obstructed one at equal popularity.
var tierDemandFactor = map[listing.SectionTier]float64{
	listing.TierPremium:      1.0,
	listing.TierUpperPremium: 0.9,
	listing.TierMid:          0.8,
	listing.TierUpperLevel:   0.7,
	listing.TierObstructed:   0.55,
}

// Predict scores resale desirability 0-100 from event popularity,
// days until the event, and the section tier. Popularity is clamped to
// [0,100] and negative day counts (past events) clamp to zero. The
// three factors combine multiplicatively, so a weak signal on any axis
// pulls the prediction down.
func Predict(popularityScore, daysUntilEvent int, tier listing.SectionTier) int {
	pop := clampInt(popularityScore, 0, 100)
	if daysUntilEvent < 0 {
		daysUntilEvent = 0
	}

	popFactor := float64(pop) / 100
	timing := timingFactor(daysUntilEvent)

	tierFactor, ok := tierDemandFactor[tier]
	if !ok {
		tierFactor = tierDemandFactor[listing.TierMid]
	}

	score := 100 * popFactor * timing * tierFactor
	return clampInt(int(math.Round(score)), 0, 100)
}

// timingFactor peaks at 1.0 inside the sweet spot. Very near events
// decay linearly toward 0.6 at day zero; far-out events decay
// exponentially with no floor, so 180+ days scores markedly below the
// peak.
func timingFactor(days int) float64 {
	switch {
	case days < sweetSpotStartDays:
		return 0.6 + 0.4*float64(days)/float64(sweetSpotStartDays)
	case days <= sweetSpotEndDays:
		return 1.0
	default:
		return math.Exp(-float64(days-sweetSpotEndDays) / 180)
	}
}

// ROI classification thresholds. Deltas within the near-average band
// carry no actionable discount signal either way.
const (
	roiHighPopularity   = 85
	roiMediumPopularity = 60
	roiMaterialDiscount = -20
	roiNearAverageBand  = 10
	roiFarOutDays       = 90
)

// EstimateROI classifies the (popularity, days-until-event, price
// delta) triple into a confidence tier and estimates resale return.
// priceDeltaPercent is signed: negative means the listing is below the
// comparable market average. Listings priced materially above average
// always estimate negative return; anything without a clear
// demand-plus-discount signal is low confidence with ROI forced to
// zero, because the prediction is not actionable.
func EstimateROI(popularityScore, daysUntilEvent int, priceDeltaPercent float64) ROIEstimate {
	pop := clampInt(popularityScore, 0, 100)
	if daysUntilEvent < 0 {
		daysUntilEvent = 0
	}

	// Paying a premium erodes resale margin no matter how strong
	// demand is.
	if priceDeltaPercent > roiNearAverageBand {
		loss := priceDeltaPercent * (0.5 + float64(pop)/200)
		return ROIEstimate{
			EstimatedROI: -int(math.Round(loss)),
			Confidence:   ConfidenceLow,
		}
	}

	discount := -priceDeltaPercent

	if pop >= roiHighPopularity && priceDeltaPercent <= roiMaterialDiscount && daysUntilEvent <= roiFarOutDays {
		roi := discount * (0.5 + float64(pop)/200)
		return ROIEstimate{
			EstimatedROI: int(math.Round(roi)),
			Confidence:   ConfidenceHigh,
		}
	}

	if pop >= roiMediumPopularity && priceDeltaPercent <= -roiNearAverageBand && daysUntilEvent <= roiFarOutDays {
		roi := discount * 0.5 * float64(pop) / 100
		return ROIEstimate{
			EstimatedROI: int(math.Round(roi)),
			Confidence:   ConfidenceMedium,
		}
	}

	return ROIEstimate{EstimatedROI: 0, Confidence: ConfidenceLow}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
