package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gouchan/seatsniper-sub001/internal/alerting"
	"github.com/gouchan/seatsniper-sub001/internal/config"
	"github.com/gouchan/seatsniper-sub001/internal/fetcher"
	"github.com/gouchan/seatsniper-sub001/internal/listing"
	"github.com/gouchan/seatsniper-sub001/internal/scoring"
	"github.com/gouchan/seatsniper-sub001/internal/storage"
)

type fakeFetcher struct {
	platform string
	listings []listing.Listing
	err      error
}

func (f *fakeFetcher) Platform() string { return f.platform }

func (f *fakeFetcher) FetchListings(ctx context.Context, eventID string) ([]listing.Listing, error) {
	return f.listings, f.err
}

type fakeSnapshotStore struct {
	snapshots []storage.SweepSnapshot
}

func (s *fakeSnapshotStore) UpsertSnapshot(ctx context.Context, snapshot storage.SweepSnapshot) error {
	s.snapshots = append(s.snapshots, snapshot)
	return nil
}

func (s *fakeSnapshotStore) ListSnapshotsBetween(ctx context.Context, eventID string, from, to time.Time) ([]storage.SweepSnapshot, error) {
	return s.snapshots, nil
}

func (s *fakeSnapshotStore) ListRecentSnapshots(ctx context.Context, limit int) ([]storage.SweepSnapshot, error) {
	return s.snapshots, nil
}

func (s *fakeSnapshotStore) MarkSnapshotErrored(ctx context.Context, sweep time.Time, eventID, errMsg string) error {
	return nil
}

func (s *fakeSnapshotStore) CountSnapshots(ctx context.Context) (int64, error) {
	return int64(len(s.snapshots)), nil
}

type fakeAlertStore struct {
	cooldown bool
	inserted []storage.AlertRecord
}

func (s *fakeAlertStore) InsertAlert(ctx context.Context, alert storage.AlertRecord) (storage.AlertRecord, error) {
	s.inserted = append(s.inserted, alert)
	return alert, nil
}

func (s *fakeAlertStore) CooldownActive(ctx context.Context, eventID, recipient string, window time.Duration) (bool, error) {
	return s.cooldown, nil
}

func (s *fakeAlertStore) ListRecentAlerts(ctx context.Context, limit int) ([]storage.AlertRecord, error) {
	return s.inserted, nil
}

func (s *fakeAlertStore) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	return nil
}

type fakeNotifier struct {
	sent []alerting.Notification
	err  error
}

func (n *fakeNotifier) Notify(ctx context.Context, note alerting.Notification) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, note)
	return nil
}

func asFetchers(fs ...*fakeFetcher) []fetcher.ListingFetcher {
	out := make([]fetcher.ListingFetcher, 0, len(fs))
	for _, f := range fs {
		out = append(out, f)
	}
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		Events: []config.EventConfig{
			{
				ID:         "evt-1",
				Name:       "Test Show",
				Venue:      "Test Arena",
				Date:       time.Now().UTC().Add(15 * 24 * time.Hour),
				Popularity: 90,
			},
		},
		Scoring: config.ScoringConfig{
			TopN:  5,
			Bands: config.BandsConfig{Exceptional: 85, Good: 40, Fair: 30},
		},
		Alerting: config.AlertingConfig{
			Enabled:    true,
			Cooldown:   time.Hour,
			Channels:   []string{"telegram"},
			Recipients: []string{"alice"},
		},
	}
}

func goodListings() []listing.Listing {
	return []listing.Listing{
		{Platform: "stubhub", Section: "101", Row: "A", PricePerTicket: decimal.NewFromInt(80), Quantity: 2, Tier: listing.TierPremium},
		{Platform: "stubhub", Section: "204", Row: "M", PricePerTicket: decimal.NewFromInt(120), Quantity: 2, Tier: listing.TierMid},
	}
}

func newService(cfg *config.Config, opts Options) *Service {
	if opts.Engine == nil {
		opts.Engine = scoring.NewEngine(scoring.Options{TopN: cfg.Scoring.TopN}, zerolog.Nop())
	}
	return New(cfg, opts, zerolog.Nop())
}

func TestProcessSweepScoresAndAlerts(t *testing.T) {
	cfg := testConfig()
	snapshots := &fakeSnapshotStore{}
	alerts := &fakeAlertStore{}
	notifier := &fakeNotifier{}

	svc := newService(cfg, Options{
		Fetchers: asFetchers(&fakeFetcher{platform: "stubhub", listings: goodListings()}),
		Store:    snapshots,
		AlertDB:  alerts,
		Notifier: notifier,
	})

	if err := svc.ProcessSweep(context.Background(), time.Now().UTC()); err != nil {
		t.Fatalf("sweep should succeed: %v", err)
	}

	if len(snapshots.snapshots) != 1 {
		t.Fatalf("expected one snapshot, got %d", len(snapshots.snapshots))
	}
	if snapshots.snapshots[0].ListingsSeen != 2 {
		t.Fatalf("snapshot should count listings, got %d", snapshots.snapshots[0].ListingsSeen)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected one alert, got %d", len(notifier.sent))
	}
	if len(alerts.inserted) != 1 {
		t.Fatalf("alert emission should be recorded, got %d", len(alerts.inserted))
	}

	note := notifier.sent[0]
	if note.Recipient != "alice" {
		t.Fatalf("wrong recipient %q", note.Recipient)
	}
	if len(note.Top) == 0 || note.Top[0].Rank != 1 {
		t.Fatalf("notification should carry the ranked list: %#v", note.Top)
	}
}

func TestProcessSweepRespectsCooldown(t *testing.T) {
	cfg := testConfig()
	alerts := &fakeAlertStore{cooldown: true}
	notifier := &fakeNotifier{}

	svc := newService(cfg, Options{
		Fetchers: asFetchers(&fakeFetcher{platform: "stubhub", listings: goodListings()}),
		Store:    &fakeSnapshotStore{},
		AlertDB:  alerts,
		Notifier: notifier,
	})

	if err := svc.ProcessSweep(context.Background(), time.Now().UTC()); err != nil {
		t.Fatalf("sweep should succeed: %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatal("cooldown must suppress the alert")
	}
	if len(alerts.inserted) != 0 {
		t.Fatal("suppressed alert must not be recorded")
	}
}

func TestProcessSweepPartialFetchFailure(t *testing.T) {
	cfg := testConfig()
	notifier := &fakeNotifier{}
	snapshots := &fakeSnapshotStore{}

	svc := newService(cfg, Options{
		Fetchers: asFetchers(
			&fakeFetcher{platform: "stubhub", listings: goodListings()},
			&fakeFetcher{platform: "seatgeek", err: errors.New("boom")},
		),
		Store:    snapshots,
		AlertDB:  &fakeAlertStore{},
		Notifier: notifier,
	})

	if err := svc.ProcessSweep(context.Background(), time.Now().UTC()); err != nil {
		t.Fatalf("one failing platform must not fail the sweep: %v", err)
	}
	if len(snapshots.snapshots) != 1 || snapshots.snapshots[0].Status != "complete" {
		t.Fatalf("surviving platform should still produce a snapshot: %#v", snapshots.snapshots)
	}
}

func TestProcessSweepAllFetchesFailed(t *testing.T) {
	cfg := testConfig()
	snapshots := &fakeSnapshotStore{}

	svc := newService(cfg, Options{
		Fetchers: asFetchers(&fakeFetcher{platform: "stubhub", err: errors.New("boom")}),
		Store:    snapshots,
		AlertDB:  &fakeAlertStore{},
		Notifier: &fakeNotifier{},
	})

	if err := svc.ProcessSweep(context.Background(), time.Now().UTC()); err == nil {
		t.Fatal("a fully failed event sweep should surface an error")
	}
	if len(snapshots.snapshots) != 1 || snapshots.snapshots[0].Status != "errored" {
		t.Fatalf("failed sweep should record an errored snapshot: %#v", snapshots.snapshots)
	}
}

func TestProcessSweepEmptyBatchNoAlert(t *testing.T) {
	cfg := testConfig()
	notifier := &fakeNotifier{}

	svc := newService(cfg, Options{
		Fetchers: asFetchers(&fakeFetcher{platform: "stubhub"}),
		Store:    &fakeSnapshotStore{},
		AlertDB:  &fakeAlertStore{},
		Notifier: notifier,
	})

	if err := svc.ProcessSweep(context.Background(), time.Now().UTC()); err != nil {
		t.Fatalf("empty batch is not an error: %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatal("empty ranked list must not alert")
	}
}
