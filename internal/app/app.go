package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/gouchan/seatsniper-sub001/internal/alerting"
	"github.com/gouchan/seatsniper-sub001/internal/config"
	"github.com/gouchan/seatsniper-sub001/internal/deeplink"
	"github.com/gouchan/seatsniper-sub001/internal/fetcher"
	"github.com/gouchan/seatsniper-sub001/internal/ratelimit"
	"github.com/gouchan/seatsniper-sub001/internal/scheduler"
	"github.com/gouchan/seatsniper-sub001/internal/scoring"
	"github.com/gouchan/seatsniper-sub001/internal/service"
	"github.com/gouchan/seatsniper-sub001/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetchers() []fetcher.ListingFetcher {
	fetchers := make([]fetcher.ListingFetcher, 0, len(a.Config.Marketplaces))
	for _, m := range a.Config.Marketplaces {
		fetchers = append(fetchers, fetcher.NewMarketplace(fetcher.MarketplaceOptions{
			Name:      m.Name,
			BaseURL:   m.BaseURL,
			APIKey:    m.APIKey,
			Timeout:   m.RequestTimeout,
			UserAgent: m.UserAgent,
		}, a.Logger))
	}
	return fetchers
}

func (a *App) newEngine() *scoring.Engine {
	cfg := a.Config.Scoring
	return scoring.NewEngine(scoring.Options{
		Weights: scoring.Weights{
			Row:    cfg.Weights.Row,
			Resale: cfg.Weights.Resale,
			Price:  cfg.Weights.Price,
		},
		Bands: scoring.Bands{
			Exceptional: cfg.Bands.Exceptional,
			Good:        cfg.Bands.Good,
			Fair:        cfg.Bands.Fair,
		},
		TopN: cfg.TopN,
	}, a.Logger)
}

func (a *App) newLinks() *deeplink.Builder {
	templates := deeplink.DefaultTemplates()
	for _, m := range a.Config.Marketplaces {
		if m.DeepLink != "" {
			templates[m.Name] = m.DeepLink
		}
	}
	return deeplink.NewBuilder(templates)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) newLimiter() *ratelimit.Limiter {
	cfg := a.Config.RateLimit
	return ratelimit.New(ratelimit.Options{
		RatePerSec: cfg.RatePerSec,
		Burst:      cfg.Burst,
		QueueDepth: cfg.QueueDepth,
	}, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newService(store *storage.Store, sched *scheduler.Scheduler, limiter *ratelimit.Limiter) *service.Service {
	var snapshotStore storage.SnapshotStore
	var alertStore storage.AlertStore
	if store != nil {
		snapshotStore = store
		alertStore = store
	}

	var pacer service.Pacer
	if limiter != nil {
		pacer = limiter
	}

	return service.New(a.Config, service.Options{
		Scheduler: sched,
		Fetchers:  a.newFetchers(),
		Engine:    a.newEngine(),
		Pacer:     pacer,
		Links:     a.newLinks(),
		Store:     snapshotStore,
		AlertDB:   alertStore,
		Notifier:  a.newNotifier(),
	}, a.Logger)
}

// Run executes the long-running sweep service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	limiter := a.newLimiter()
	defer limiter.Close()

	svc := a.newService(store, sched, limiter)

	a.Logger.Info().Msg("starting sweep service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("sweep service stopped")
	return nil
}

// ExportOptions hold parameters for exporting historical snapshots.
type ExportOptions struct {
	EventID   string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit  int
	Alerts bool
}

// ScoreOptions configure the offline score command.
type ScoreOptions struct {
	InputPath string
	TopN      int
}
