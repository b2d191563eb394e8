package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gouchan/seatsniper-sub001/internal/config"
	"github.com/gouchan/seatsniper-sub001/internal/fetcher"
	"github.com/gouchan/seatsniper-sub001/internal/listing"
	"github.com/gouchan/seatsniper-sub001/internal/service"
)

// SimulateOptions configure a synthetic alert run.
type SimulateOptions struct {
	EventID string
	Count   int
}

// SimulateAlert scores a synthetic batch for one tracked event and pushes
// the result through the real alert pipeline, without touching the database.
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	ev, ok := a.Config.FindEvent(opts.EventID)
	if !ok {
		return fmt.Errorf("event %q is not tracked in config", opts.EventID)
	}

	if opts.Count <= 0 {
		opts.Count = 12
	}

	cfg := *a.Config
	cfg.Events = []config.EventConfig{ev}

	static := &staticListingFetcher{listings: syntheticBatch(opts.Count)}

	svc := service.New(&cfg, service.Options{
		Fetchers: []fetcher.ListingFetcher{static},
		Engine:   a.newEngine(),
		Links:    a.newLinks(),
		Notifier: notifier,
	}, a.Logger)

	return svc.ProcessSweep(ctx, time.Now().UTC())
}

// syntheticBatch fabricates listings spread across tiers, rows and prices
// so the ranked output exercises every recommendation band.
func syntheticBatch(count int) []listing.Listing {
	tiers := []listing.SectionTier{
		listing.TierPremium,
		listing.TierUpperPremium,
		listing.TierMid,
		listing.TierUpperLevel,
		listing.TierObstructed,
	}
	sections := []string{"FLR1", "101", "205", "310", "415"}
	rows := []string{"A", "C", "F", "K", "P"}

	batch := make([]listing.Listing, 0, count)
	for i := 0; i < count; i++ {
		tier := tiers[i%len(tiers)]
		price := decimal.NewFromInt(int64(60 + 45*i))
		batch = append(batch, listing.Listing{
			Platform:       "simulated",
			Section:        sections[i%len(sections)],
			Row:            rows[i%len(rows)],
			PricePerTicket: price,
			Quantity:       2,
			Tier:           tier,
			URL:            fmt.Sprintf("https://example.com/listing/%d", i+1),
		})
	}
	return batch
}

type staticListingFetcher struct {
	listings []listing.Listing
}

func (s *staticListingFetcher) Platform() string { return "simulated" }

func (s *staticListingFetcher) FetchListings(ctx context.Context, eventID string) ([]listing.Listing, error) {
	return s.listings, nil
}

var _ fetcher.ListingFetcher = (*staticListingFetcher)(nil)
