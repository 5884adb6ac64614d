package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/radar/internal/core"
	"github.com/newthinker/radar/internal/sorting"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Quotes    QuotesConfig    `mapstructure:"quotes"`
	Watchlist WatchlistConfig `mapstructure:"watchlist"`
	Sort      SortConfig      `mapstructure:"sort"`
	Refresh   RefreshConfig   `mapstructure:"refresh"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	JobTTLHours int    `mapstructure:"job_ttl_hours"`
	MaxJobs     int    `mapstructure:"max_jobs"`
}

// StorageConfig selects where target prices are persisted.
type StorageConfig struct {
	Type   string       `mapstructure:"type"` // "memory", "file", "s3" or "sqlite"
	Path   string       `mapstructure:"path"` // For file
	S3     S3Config     `mapstructure:"s3"`
	SQLite SQLiteConfig `mapstructure:"sqlite"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
	Key       string `mapstructure:"key"`
}

type SQLiteConfig struct {
	DSN string `mapstructure:"dsn"`
}

// QuotesConfig holds quote source settings. Providers are tried in order.
type QuotesConfig struct {
	Providers   []string       `mapstructure:"providers"`
	Timeout     time.Duration  `mapstructure:"timeout"`
	Freshness   time.Duration  `mapstructure:"freshness"`
	Concurrency int            `mapstructure:"concurrency"`
	Dedupe      bool           `mapstructure:"dedupe"`
	Finnhub     ProviderConfig `mapstructure:"finnhub"`
	Yahoo       ProviderConfig `mapstructure:"yahoo"`
	Alpaca      ProviderConfig `mapstructure:"alpaca"`
}

type ProviderConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	Feed      string `mapstructure:"feed"` // Alpaca only
}

// WatchlistConfig holds the baseline symbols: inline items first, then the
// YAML file.
type WatchlistConfig struct {
	File  string          `mapstructure:"file"`
	Items []WatchlistItem `mapstructure:"items"`
}

type WatchlistItem struct {
	Symbol string   `mapstructure:"symbol"`
	Name   string   `mapstructure:"name"`
	Target *float64 `mapstructure:"target"`
}

type SortConfig struct {
	Field     string `mapstructure:"field"`
	Direction string `mapstructure:"direction"`
	Mode      string `mapstructure:"mode"` // "toggle" or "cycle"
}

// RefreshConfig holds the periodic refresh interval. Zero disables it.
type RefreshConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

var knownProviders = map[string]bool{"finnhub": true, "yahoo": true, "alpaca": true}

// Load reads configuration from file over Defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.SetEnvPrefix("RADAR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			JobTTLHours: 1,
			MaxJobs:     100,
		},
		Storage: StorageConfig{
			Type: "file",
			Path: "data/target-prices.json",
		},
		Quotes: QuotesConfig{
			Providers:   []string{"yahoo"},
			Timeout:     10 * time.Second,
			Freshness:   10 * time.Minute,
			Concurrency: 8,
		},
		Sort: SortConfig{
			Field:     string(sorting.FieldSymbol),
			Direction: string(sorting.DirectionAsc),
			Mode:      string(sorting.ModeToggle),
		},
		Refresh: RefreshConfig{
			Interval: 5 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	// Storage validation
	switch c.Storage.Type {
	case "memory":
	case "file":
		if c.Storage.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("storage path required when type is file"))
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when type is s3"))
		}
	case "sqlite":
		if c.Storage.SQLite.DSN == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("sqlite dsn required when type is sqlite"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown storage type %q", c.Storage.Type))
	}

	// Quote validation
	if len(c.Quotes.Providers) == 0 {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("at least one quote provider required"))
	}
	for _, p := range c.Quotes.Providers {
		if !knownProviders[p] {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown quote provider %q", p))
		}
		switch p {
		case "finnhub":
			if c.Quotes.Finnhub.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("finnhub api_key required when finnhub is a provider"))
			}
		case "alpaca":
			if c.Quotes.Alpaca.APIKey == "" || c.Quotes.Alpaca.APISecret == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("alpaca api_key and api_secret required when alpaca is a provider"))
			}
		}
	}
	if c.Quotes.Timeout < 0 || c.Quotes.Freshness < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("quote timeout and freshness cannot be negative"))
	}
	if c.Quotes.Concurrency < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("concurrency cannot be negative, got %d", c.Quotes.Concurrency))
	}

	// Sort validation
	if _, err := c.Sort.Config(); err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}
	if _, err := sorting.ParseMode(c.Sort.Mode); err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}

	if c.Refresh.Interval < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("refresh interval cannot be negative, got %s", c.Refresh.Interval))
	}

	for _, item := range c.Watchlist.Items {
		if _, err := core.NormalizeSymbol(item.Symbol); err != nil {
			return core.WrapError(core.ErrConfigInvalid, err)
		}
	}

	return nil
}

// Config returns the initial sort config.
func (s SortConfig) Config() (sorting.Config, error) {
	field, err := sorting.ParseField(s.Field)
	if err != nil {
		return sorting.Config{}, err
	}
	dir, err := sorting.ParseDirection(s.Direction)
	if err != nil {
		return sorting.Config{}, err
	}
	return sorting.Config{Field: field, Direction: dir}, nil
}
