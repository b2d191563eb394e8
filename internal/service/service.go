package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gouchan/seatsniper-sub001/internal/alerting"
	"github.com/gouchan/seatsniper-sub001/internal/config"
	"github.com/gouchan/seatsniper-sub001/internal/deeplink"
	"github.com/gouchan/seatsniper-sub001/internal/fetcher"
	"github.com/gouchan/seatsniper-sub001/internal/listing"
	"github.com/gouchan/seatsniper-sub001/internal/scheduler"
	"github.com/gouchan/seatsniper-sub001/internal/scoring"
	"github.com/gouchan/seatsniper-sub001/internal/storage"
)

// Pacer gates outbound marketplace requests.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Service orchestrates sweeping, scoring, persistence, and alerting.
type Service struct {
	scheduler *scheduler.Scheduler
	fetchers  []fetcher.ListingFetcher
	engine    *scoring.Engine
	pacer     Pacer
	links     *deeplink.Builder
	store     storage.SnapshotStore
	alertdb   storage.AlertStore
	notifier  alerting.Notifier
	logger    zerolog.Logger

	events        []listing.Event
	recipients    []string
	channels      []string
	cooldown      time.Duration
	minAlertScore int
	alertsOn      bool
	locker        storage.AdvisoryLocker
	lockKey       int64
}

// Options bundle the service collaborators.
type Options struct {
	Scheduler *scheduler.Scheduler
	Fetchers  []fetcher.ListingFetcher
	Engine    *scoring.Engine
	Pacer     Pacer
	Links     *deeplink.Builder
	Store     storage.SnapshotStore
	AlertDB   storage.AlertStore
	Notifier  alerting.Notifier
}

// New constructs the sweep service.
func New(cfg *config.Config, opts Options, logger zerolog.Logger) *Service {
	events := make([]listing.Event, 0, len(cfg.Events))
	for _, ev := range cfg.Events {
		events = append(events, listing.Event{
			ID:         ev.ID,
			Name:       ev.Name,
			Venue:      ev.Venue,
			Date:       ev.Date,
			Popularity: ev.Popularity,
			TotalRows:  ev.TotalRows,
		})
	}

	var locker storage.AdvisoryLocker
	if l, ok := opts.Store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	recipients := cfg.Alerting.Recipients
	if len(recipients) == 0 {
		// Cooldown tracking needs a recipient key even when alerts go
		// to a single shared channel.
		recipients = []string{"default"}
	}

	return &Service{
		scheduler:     opts.Scheduler,
		fetchers:      opts.Fetchers,
		engine:        opts.Engine,
		pacer:         opts.Pacer,
		links:         opts.Links,
		store:         opts.Store,
		alertdb:       opts.AlertDB,
		notifier:      opts.Notifier,
		logger:        logger.With().Str("component", "service").Logger(),
		events:        events,
		recipients:    recipients,
		channels:      cfg.Alerting.Channels,
		cooldown:      cfg.Alerting.Cooldown,
		minAlertScore: cfg.Scoring.Bands.Good,
		alertsOn:      cfg.Alerting.Enabled,
		locker:        locker,
		lockKey:       cfg.Scheduler.AdvisoryLockKey,
	}
}

// Run begins the aligned sweep loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessSweep)
}

// ProcessSweep executes one full sweep over all tracked events.
func (s *Service) ProcessSweep(ctx context.Context, sweep time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("sweep", sweep).Msg("skip sweep because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	var firstErr error
	for _, ev := range s.events {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err := s.processEvent(ctx, sweep, ev); err != nil {
			s.logger.Error().Err(err).Str("event_id", ev.ID).Time("sweep", sweep).Msg("event sweep failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// processEvent fetches, scores, persists, and alerts for one event.
func (s *Service) processEvent(ctx context.Context, sweep time.Time, ev listing.Event) error {
	batch, fetchErrs := s.collectListings(ctx, ev)
	if len(batch) == 0 && fetchErrs > 0 {
		err := fmt.Errorf("all %d marketplace fetches failed", fetchErrs)
		if s.store != nil {
			msg := err.Error()
			snapshot := storage.SweepSnapshot{
				SweepTS:   sweep,
				EventID:   ev.ID,
				BestPrice: decimal.Zero,
				MeanPrice: decimal.Zero,
				Status:    "errored",
				Error:     &msg,
			}
			if upsertErr := s.store.UpsertSnapshot(ctx, snapshot); upsertErr != nil {
				s.logger.Error().Err(upsertErr).Str("event_id", ev.ID).Msg("failed to record errored snapshot")
			}
		}
		return err
	}

	ranked := s.engine.ScoreBatch(ev, batch, time.Now().UTC())
	for i := range ranked {
		if s.links != nil {
			ranked[i].DeepLink = s.links.Build(ev.ID, ranked[i])
		}
	}

	if s.store != nil {
		if err := s.store.UpsertSnapshot(ctx, s.buildSnapshot(sweep, ev, batch, ranked)); err != nil {
			s.logger.Error().Err(err).Str("event_id", ev.ID).Time("sweep", sweep).Msg("failed to upsert snapshot")
		}
	}

	scored := s.logger.Info().
		Str("event_id", ev.ID).
		Time("sweep", sweep).
		Int("listings", len(batch)).
		Int("ranked", len(ranked))
	if len(ranked) > 0 {
		scored = scored.Int("best_score", ranked[0].ValueScore).Str("best", deeplink.Describe(ranked[0]))
	}
	scored.Msg("sweep scored")

	if s.alertsOn && s.notifier != nil && len(ranked) > 0 && ranked[0].ValueScore >= s.minAlertScore {
		s.dispatchAlerts(ctx, sweep, ev, ranked)
	}

	return nil
}

// collectListings gathers normalized listings from every marketplace,
// pacing each request through the rate limiter. A failing platform
// degrades the batch instead of failing the sweep.
func (s *Service) collectListings(ctx context.Context, ev listing.Event) ([]listing.Listing, int) {
	var batch []listing.Listing
	failed := 0
	for _, f := range s.fetchers {
		if s.pacer != nil {
			if err := s.pacer.Wait(ctx); err != nil {
				s.logger.Warn().Err(err).Str("platform", f.Platform()).Msg("rate limiter wait aborted")
				failed++
				continue
			}
		}

		listings, err := f.FetchListings(ctx, ev.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("platform", f.Platform()).Str("event_id", ev.ID).Msg("fetch listings failed")
			failed++
			continue
		}
		batch = append(batch, listings...)
	}
	return batch, failed
}

func (s *Service) buildSnapshot(sweep time.Time, ev listing.Event, batch []listing.Listing, ranked []listing.TopValueListing) storage.SweepSnapshot {
	snapshot := storage.SweepSnapshot{
		SweepTS:      sweep,
		EventID:      ev.ID,
		ListingsSeen: len(batch),
		BestPrice:    decimal.Zero,
		MeanPrice:    decimal.Zero,
		Status:       "complete",
		CreatedAt:    time.Now().UTC(),
	}

	if len(ranked) > 0 {
		snapshot.BestScore = ranked[0].ValueScore
		snapshot.BestPrice = ranked[0].PricePerTicket
	}
	if len(batch) > 0 {
		sum := decimal.Zero
		for _, l := range batch {
			sum = sum.Add(l.PricePerTicket)
		}
		snapshot.MeanPrice = sum.Div(decimal.NewFromInt(int64(len(batch)))).Round(2)
	}
	if payload, err := json.Marshal(ranked); err == nil {
		snapshot.RankedPayload = payload
	}

	return snapshot
}

// dispatchAlerts sends the ranked picks to each recipient outside its
// cooldown window and records the emission.
func (s *Service) dispatchAlerts(ctx context.Context, sweep time.Time, ev listing.Event, ranked []listing.TopValueListing) {
	payload, err := json.Marshal(ranked)
	if err != nil {
		s.logger.Error().Err(err).Str("event_id", ev.ID).Msg("failed to marshal ranked payload")
		return
	}

	for _, recipient := range s.recipients {
		if s.alertdb != nil {
			active, err := s.alertdb.CooldownActive(ctx, ev.ID, recipient, s.cooldown)
			if err != nil {
				s.logger.Error().Err(err).Str("recipient", recipient).Msg("cooldown check failed")
				continue
			}
			if active {
				s.logger.Debug().Str("event_id", ev.ID).Str("recipient", recipient).Msg("cooldown active; alert suppressed")
				continue
			}

			record := storage.AlertRecord{
				EventID:       ev.ID,
				Recipient:     recipient,
				SweepTS:       sweep,
				BestScore:     ranked[0].ValueScore,
				RankedPayload: payload,
				Channels:      s.channels,
			}
			if _, err := s.alertdb.InsertAlert(ctx, record); err != nil {
				s.logger.Error().Err(err).Str("recipient", recipient).Msg("failed to persist alert record")
			}
		}

		note := alerting.Notification{
			SweepTS:   sweep,
			Event:     ev,
			Top:       ranked,
			Recipient: recipient,
			Channels:  s.channels,
		}
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).Str("recipient", recipient).Msg("failed to dispatch alert")
		}
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
