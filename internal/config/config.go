// Package config loads fincast settings from TOML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds all fincast configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Ledger     LedgerConfig     `toml:"ledger"`
	Forecast   ForecastConfig   `toml:"forecast"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Alerts     AlertsConfig     `toml:"alerts"`
	Sentry     SentryConfig     `toml:"sentry"`
	Appearance AppearanceConfig `toml:"appearance"`
	TUI        TUIConfig        `toml:"tui"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DefaultMonths int    `toml:"default_months"`
	Currency      string `toml:"currency"`
	LogLevel      string `toml:"log_level"`
}

// LedgerConfig selects and locates the ledger store.
type LedgerConfig struct {
	Backend     string `toml:"backend"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
	ImportDir   string `toml:"import_dir,omitempty"`
}

// ForecastConfig holds forecast defaults.
type ForecastConfig struct {
	Method      string `toml:"method"`
	Horizon     int    `toml:"horizon"`
	Window      int    `toml:"window"`
	Granularity string `toml:"granularity"`
}

// DaemonConfig holds background refresh settings.
type DaemonConfig struct {
	Addr         string `toml:"addr"`
	IntervalSec  int    `toml:"interval_sec"`
	EventsBuffer int    `toml:"events_buffer"`
	BatchLimit   int    `toml:"batch_limit,omitempty"`
}

// AlertsConfig holds the optional AMQP hand-off for emitted alerts.
type AlertsConfig struct {
	AMQPURL    string `toml:"amqp_url,omitempty"`
	Exchange   string `toml:"exchange"`
	RoutingKey string `toml:"routing_key"`
}

// SentryConfig holds error reporting settings.
type SentryConfig struct {
	DSN         string `toml:"dsn,omitempty"`
	Environment string `toml:"environment,omitempty"`
}

// TUIConfig holds dashboard refresh settings.
type TUIConfig struct {
	AutoRefresh        bool `toml:"auto_refresh"`
	RefreshIntervalSec int  `toml:"refresh_interval_sec"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// Interval is the daemon poll interval.
func (d DaemonConfig) Interval() time.Duration {
	return time.Duration(d.IntervalSec) * time.Second
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			DefaultMonths: 12,
			Currency:      "USD",
			LogLevel:      "warn",
		},
		Ledger: LedgerConfig{
			Backend:    "sqlite",
			SQLitePath: filepath.Join(DataDir(), "ledger.db"),
		},
		Forecast: ForecastConfig{
			Method:      "linear",
			Horizon:     3,
			Window:      3,
			Granularity: "month",
		},
		Daemon: DaemonConfig{
			Addr:         "127.0.0.1:8787",
			IntervalSec:  900,
			EventsBuffer: 200,
		},
		Alerts: AlertsConfig{
			Exchange:   "fincast",
			RoutingKey: "budget.alert",
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		TUI: TUIConfig{
			AutoRefresh:        true,
			RefreshIntervalSec: 60,
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "fincast")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "fincast")
}

// DataDir returns the XDG-compliant data directory holding the local ledger.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "fincast")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "fincast")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist, then
// applies .env and environment overrides.
func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom is Load for an explicit path.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is the user's own config
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	case !os.IsNotExist(err):
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	// A missing .env is normal outside development.
	_ = godotenv.Load()
	ApplyEnv(&cfg)
	return cfg, nil
}

// ApplyEnv overrides secrets and endpoints from the environment.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("FINCAST_POSTGRES_DSN"); v != "" {
		cfg.Ledger.PostgresDSN = v
		cfg.Ledger.Backend = "postgres"
	}
	if v := os.Getenv("FINCAST_SQLITE_PATH"); v != "" {
		cfg.Ledger.SQLitePath = v
	}
	if v := os.Getenv("FINCAST_AMQP_URL"); v != "" {
		cfg.Alerts.AMQPURL = v
	}
	if v := os.Getenv("SENTRY_DSN"); v != "" {
		cfg.Sentry.DSN = v
	}
	if v := os.Getenv("FINCAST_LOG_LEVEL"); v != "" {
		cfg.General.LogLevel = v
	}
	if v := os.Getenv("FINCAST_DAEMON_ADDR"); v != "" {
		cfg.Daemon.Addr = v
	}
	if v := os.Getenv("FINCAST_DAEMON_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Daemon.IntervalSec = n
		}
	}
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var problems []string

	if c.General.DefaultMonths < 1 {
		problems = append(problems, fmt.Sprintf("general.default_months must be at least 1, got %d", c.General.DefaultMonths))
	}
	switch strings.ToLower(c.General.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("invalid general.log_level %q: must be debug, info, warn or error", c.General.LogLevel))
	}

	switch c.Ledger.Backend {
	case "sqlite":
		if c.Ledger.SQLitePath == "" {
			problems = append(problems, "ledger.sqlite_path cannot be empty when using the sqlite backend")
		}
	case "postgres":
		if c.Ledger.PostgresDSN == "" {
			problems = append(problems, "ledger.postgres_dsn (or FINCAST_POSTGRES_DSN) is required for the postgres backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid ledger.backend %q: must be sqlite or postgres", c.Ledger.Backend))
	}

	switch strings.ToLower(c.Forecast.Method) {
	case "linear", "moving_average", "seasonal":
	default:
		problems = append(problems, fmt.Sprintf("invalid forecast.method %q", c.Forecast.Method))
	}
	if c.Forecast.Horizon < 1 {
		problems = append(problems, fmt.Sprintf("forecast.horizon must be positive, got %d", c.Forecast.Horizon))
	}
	if c.Forecast.Window < 1 {
		problems = append(problems, fmt.Sprintf("forecast.window must be positive, got %d", c.Forecast.Window))
	}
	switch c.Forecast.Granularity {
	case "day", "week", "month":
	default:
		problems = append(problems, fmt.Sprintf("invalid forecast.granularity %q", c.Forecast.Granularity))
	}

	if c.Daemon.IntervalSec < 10 {
		problems = append(problems, fmt.Sprintf("daemon.interval_sec must be at least 10, got %d", c.Daemon.IntervalSec))
	}
	if c.Daemon.EventsBuffer < 1 {
		problems = append(problems, "daemon.events_buffer must be positive")
	}

	if c.Alerts.AMQPURL != "" {
		if u, err := url.Parse(c.Alerts.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid alerts.amqp_url: %v", err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid alerts.amqp_url scheme %q: must be amqp or amqps", u.Scheme))
		}
		if c.Alerts.Exchange == "" {
			problems = append(problems, "alerts.exchange cannot be empty when amqp_url is set")
		}
	}

	if len(problems) > 0 {
		return errors.New("configuration validation failed:\n- " + strings.Join(problems, "\n- "))
	}
	return nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

// SaveTo writes cfg to path with owner-only permissions.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // path is the user's own config
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return toml.NewEncoder(f).Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
