package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gouchan/seatsniper-sub001/internal/listing"
)

// Weights split the composite value score across the three signals.
// They are normalized at construction so any positive triple works.
type Weights struct {
	Row    float64
	Resale float64
	Price  float64
}

// DefaultWeights favor seat position and demand equally, with price
// standing slightly behind.
func DefaultWeights() Weights {
	return Weights{Row: 0.35, Resale: 0.35, Price: 0.30}
}

// Bands are the lower score bounds for each recommendation label.
type Bands struct {
	Exceptional int
	Good        int
	Fair        int
}

// DefaultBands fixes the recommendation thresholds.
func DefaultBands() Bands {
	return Bands{Exceptional: 85, Good: 70, Fair: 55}
}

// Recommendation labels attached to ranked listings.
const (
	RecommendExceptional = "Exceptional deal"
	RecommendGood        = "Good value"
	RecommendFair        = "Fair price"
	RecommendPass        = "Pass"
)

// DefaultTopN is how many ranked listings survive truncation for the
// outbound alert.
const DefaultTopN = 5

// Options tune the engine.
type Options struct {
	Weights Weights
	Bands   Bands
	TopN    int
}

// Engine combines row position, resale demand, and price standing into
// one ranked candidate list per batch. It is stateless across calls.
type Engine struct {
	weights Weights
	bands   Bands
	topN    int
	logger  zerolog.Logger
}

// NewEngine constructs an Engine, normalizing weights and falling back
// to defaults for zero-valued options.
func NewEngine(opts Options, logger zerolog.Logger) *Engine {
	weights := opts.Weights
	total := weights.Row + weights.Resale + weights.Price
	if total <= 0 {
		weights = DefaultWeights()
		total = 1
	}
	weights.Row /= total
	weights.Resale /= total
	weights.Price /= total

	bands := opts.Bands
	if bands.Exceptional == 0 && bands.Good == 0 && bands.Fair == 0 {
		bands = DefaultBands()
	}

	topN := opts.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	return &Engine{
		weights: weights,
		bands:   bands,
		topN:    topN,
		logger:  logger.With().Str("component", "value_engine").Logger(),
	}
}

// ScoreBatch scores every listing in a batch for one event and returns
// the top candidates sorted by value score descending, ties broken by
// ascending price, with dense 1-based ranks. An empty batch yields an
// empty list.
func (e *Engine) ScoreBatch(ev listing.Event, batch []listing.Listing, now time.Time) []listing.TopValueListing {
	if len(batch) == 0 {
		return []listing.TopValueListing{}
	}

	daysUntil := ev.DaysUntil(now)
	prices := batchPrices(batch)

	scored := make([]listing.TopValueListing, 0, len(batch))
	for _, l := range batch {
		scored = append(scored, e.scoreOne(ev, l, daysUntil, prices))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].ValueScore != scored[j].ValueScore {
			return scored[i].ValueScore > scored[j].ValueScore
		}
		return scored[i].PricePerTicket.LessThan(scored[j].PricePerTicket)
	})

	if len(scored) > e.topN {
		scored = scored[:e.topN]
	}
	for i := range scored {
		scored[i].Rank = i + 1
	}

	e.logger.Debug().
		Str("event_id", ev.ID).
		Int("batch", len(batch)).
		Int("ranked", len(scored)).
		Msg("batch scored")

	return scored
}

func (e *Engine) scoreOne(ev listing.Event, l listing.Listing, daysUntil int, prices priceStats) listing.TopValueListing {
	rowRank := ParseRowToRank(l.Row)
	totalRows := ev.TotalRows
	if totalRows <= 0 {
		totalRows = EstimateTotalRows(l.Tier.Ordinal())
	}
	rowScore := EvaluateRowPosition(rowRank, totalRows)

	resaleScore := Predict(ev.Popularity, daysUntil, l.Tier)

	price := l.PricePerTicket.InexactFloat64()
	priceScore := prices.standing(price)

	combined := e.weights.Row*float64(rowScore) +
		e.weights.Resale*float64(resaleScore) +
		e.weights.Price*priceScore
	valueScore := clampInt(int(math.Round(combined)), 0, 100)

	roi := EstimateROI(ev.Popularity, daysUntil, prices.deltaPercent(price))

	return listing.TopValueListing{
		Platform:       l.Platform,
		Section:        l.Section,
		Row:            l.Row,
		PricePerTicket: l.PricePerTicket,
		Quantity:       l.Quantity,
		ValueScore:     valueScore,
		Recommendation: e.recommendation(valueScore),
		EstimatedROI:   roi.EstimatedROI,
		ROIConfidence:  roi.Confidence,
		DeepLink:       l.URL,
	}
}

func (e *Engine) recommendation(score int) string {
	switch {
	case score >= e.bands.Exceptional:
		return RecommendExceptional
	case score >= e.bands.Good:
		return RecommendGood
	case score >= e.bands.Fair:
		return RecommendFair
	default:
		return RecommendPass
	}
}

// priceStats captures the batch price distribution used for the
// price-value signal and the ROI price delta.
type priceStats struct {
	min  float64
	max  float64
	mean float64
}

func batchPrices(batch []listing.Listing) priceStats {
	stats := priceStats{min: math.Inf(1), max: math.Inf(-1)}
	sum := decimal.Zero
	for _, l := range batch {
		p := l.PricePerTicket.InexactFloat64()
		stats.min = math.Min(stats.min, p)
		stats.max = math.Max(stats.max, p)
		sum = sum.Add(l.PricePerTicket)
	}
	stats.mean = sum.InexactFloat64() / float64(len(batch))
	return stats
}

// standing scores a price against the batch range: the cheapest listing
// scores 100, the most expensive 0. A single-price batch is neutral.
func (s priceStats) standing(price float64) float64 {
	spread := s.max - s.min
	if spread <= 0 {
		return neutralRowScore
	}
	return 100 * (s.max - price) / spread
}

// deltaPercent is the signed percent difference from the batch mean.
func (s priceStats) deltaPercent(price float64) float64 {
	if s.mean <= 0 {
		return 0
	}
	return (price - s.mean) / s.mean * 100
}
