package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/gouchan/seatsniper-sub001/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App          AppConfig           `mapstructure:"app"`
	Logging      logging.Config      `mapstructure:"logging"`
	Database     DatabaseConfig      `mapstructure:"database"`
	Scheduler    SchedulerConfig     `mapstructure:"scheduler"`
	Marketplaces []MarketplaceConfig `mapstructure:"marketplaces"`
	Events       []EventConfig       `mapstructure:"events"`
	Scoring      ScoringConfig       `mapstructure:"scoring"`
	RateLimit    RateLimitConfig     `mapstructure:"ratelimit"`
	Alerting     AlertingConfig      `mapstructure:"alerting"`
	Export       ExportConfig        `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs sweep cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// MarketplaceConfig describes one resale platform to sweep.
type MarketplaceConfig struct {
	Name           string        `mapstructure:"name"`
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	DeepLink       string        `mapstructure:"deep_link"`
}

// EventConfig is one tracked event.
type EventConfig struct {
	ID         string    `mapstructure:"id"`
	Name       string    `mapstructure:"name"`
	Venue      string    `mapstructure:"venue"`
	Date       time.Time `mapstructure:"date"`
	Popularity int       `mapstructure:"popularity"`
	TotalRows  int       `mapstructure:"total_rows"`
}

// ScoringConfig fixes the value engine's tunables.
type ScoringConfig struct {
	TopN    int           `mapstructure:"top_n"`
	Weights WeightsConfig `mapstructure:"weights"`
	Bands   BandsConfig   `mapstructure:"bands"`
}

// WeightsConfig splits the composite score across signals.
type WeightsConfig struct {
	Row    float64 `mapstructure:"row"`
	Resale float64 `mapstructure:"resale"`
	Price  float64 `mapstructure:"price"`
}

// BandsConfig sets recommendation label thresholds.
type BandsConfig struct {
	Exceptional int `mapstructure:"exceptional"`
	Good        int `mapstructure:"good"`
	Fair        int `mapstructure:"fair"`
}

// RateLimitConfig paces outbound marketplace requests.
type RateLimitConfig struct {
	RatePerSec float64 `mapstructure:"rate_per_sec"`
	Burst      int     `mapstructure:"burst"`
	QueueDepth int     `mapstructure:"queue_depth"`
}

// AlertingConfig defines alert routing and the cooldown window.
type AlertingConfig struct {
	Enabled    bool           `mapstructure:"enabled"`
	Cooldown   time.Duration  `mapstructure:"cooldown"`
	Channels   []string       `mapstructure:"channels"`
	Recipients []string       `mapstructure:"recipients"`
	Telegram   TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram delivery channel.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SEATSNIPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "seatsniper")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "10m")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x5EA75))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("scoring.top_n", 5)
	v.SetDefault("scoring.weights.row", 0.35)
	v.SetDefault("scoring.weights.resale", 0.35)
	v.SetDefault("scoring.weights.price", 0.30)
	v.SetDefault("scoring.bands.exceptional", 85)
	v.SetDefault("scoring.bands.good", 70)
	v.SetDefault("scoring.bands.fair", 55)

	v.SetDefault("ratelimit.rate_per_sec", 2.0)
	v.SetDefault("ratelimit.burst", 5)
	v.SetDefault("ratelimit.queue_depth", 256)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.cooldown", "1h")
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Scoring.TopN <= 0 {
		return fmt.Errorf("scoring.top_n must be greater than zero")
	}
	if w := c.Scoring.Weights; w.Row < 0 || w.Resale < 0 || w.Price < 0 {
		return fmt.Errorf("scoring.weights cannot be negative")
	}
	if c.RateLimit.RatePerSec <= 0 {
		return fmt.Errorf("ratelimit.rate_per_sec must be greater than zero")
	}
	for i, m := range c.Marketplaces {
		if m.Name == "" {
			return fmt.Errorf("marketplaces[%d].name is required", i)
		}
		if m.BaseURL == "" {
			return fmt.Errorf("marketplaces[%d].base_url is required", i)
		}
	}
	for i, ev := range c.Events {
		if ev.ID == "" {
			return fmt.Errorf("events[%d].id is required", i)
		}
		if ev.Popularity < 0 || ev.Popularity > 100 {
			return fmt.Errorf("events[%d].popularity must be within 0-100", i)
		}
	}
	if c.Alerting.Cooldown < 0 {
		return fmt.Errorf("alerting.cooldown cannot be negative")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}

// FindEvent returns the tracked event with the given id.
func (c *Config) FindEvent(id string) (EventConfig, bool) {
	for _, ev := range c.Events {
		if ev.ID == id {
			return ev, true
		}
	}
	return EventConfig{}, false
}
