package app

import (
	"context"
	"time"

	"github.com/gouchan/seatsniper-sub001/internal/service"
	"github.com/gouchan/seatsniper-sub001/internal/storage"
)

// SweepOptions configure a manual one-shot sweep.
type SweepOptions struct {
	// DryRun skips database writes and alert dispatch.
	DryRun bool
}

// Sweep fetches, scores and persists a single sweep immediately, outside
// the scheduler cadence.
func (a *App) Sweep(ctx context.Context, opts SweepOptions) error {
	var store *storage.Store

	if opts.DryRun {
		a.Logger.Warn().Msg("dry-run sweep: snapshots and alerts will not be persisted")
	} else {
		var closeStore func()
		var err error
		store, closeStore, err = a.openStore(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			a.Logger.Warn().Msg("database.dsn not configured; sweeping without persistence")
		}
		if closeStore != nil {
			defer closeStore()
		}
	}

	limiter := a.newLimiter()
	defer limiter.Close()

	var snapshotStore storage.SnapshotStore
	var alertStore storage.AlertStore
	if store != nil {
		snapshotStore = store
		alertStore = store
	}

	notifier := a.newNotifier()
	if opts.DryRun {
		notifier = nil
	}

	svc := service.New(a.Config, service.Options{
		Fetchers: a.newFetchers(),
		Engine:   a.newEngine(),
		Pacer:    limiter,
		Links:    a.newLinks(),
		Store:    snapshotStore,
		AlertDB:  alertStore,
		Notifier: notifier,
	}, a.Logger)

	sweep := time.Now().UTC()
	if err := svc.ProcessSweep(ctx, sweep); err != nil {
		a.Logger.Error().Err(err).Time("sweep", sweep).Msg("manual sweep failed")
		return err
	}

	a.Logger.Info().Time("sweep", sweep).Msg("manual sweep completed")
	return nil
}
