package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

const (
	GeocoderProvider = "provider"
	GeocoderGoogle   = "google"
)

type AppConfig struct {
	// OpenWeatherMap access. Checked by the provider client, not here.
	APIKey     string `env:"API_KEY"`
	APIBaseURL string `env:"API_BASE_URL"`

	ProviderUnits          string        `env:"PROVIDER_UNITS,default=imperial"`
	ResolutionStrategy     string        `env:"RESOLUTION_STRATEGY,default=direct"`
	Geocoder               string        `env:"GEOCODER,default=provider"`
	GoogleGeocoderKey      string        `env:"GOOGLE_GEOCODER_API_KEY"`
	ForecastSlot           string        `env:"FORECAST_SLOT,default=12:00:00"`
	HTTPTimeout            time.Duration `env:"HTTP_TIMEOUT,default=10s"`
	ProviderMaxRetries     int           `env:"PROVIDER_MAX_RETRIES,default=0"`
	ProviderCircuitBreaker bool          `env:"PROVIDER_CIRCUIT_BREAKER,default=false"`

	// Search history.
	HistoryDriver          string        `env:"HISTORY_DRIVER,default=sqlite"`
	HistoryDSN             string        `env:"HISTORY_DSN,default=searchHistory.db"`
	HistoryMaxEntries      int           `env:"HISTORY_MAX_ENTRIES,default=20"`
	HistoryCaseInsensitive bool          `env:"HISTORY_CASE_INSENSITIVE,default=false"`
	HistoryMaxAge          time.Duration `env:"HISTORY_MAX_AGE,default=0s"`
	HistoryPruneInterval   time.Duration `env:"HISTORY_PRUNE_INTERVAL,default=1h"`

	Port      string `env:"PORT,default=8080"`
	StaticDir string `env:"STATIC_DIR,default=./client/dist"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=json"`

	// EnvFile is the .env file that was loaded, empty when none was found.
	EnvFile string
}

// Load reads .env when present, then the process environment.
func Load(ctx context.Context) (*AppConfig, error) {
	return load(ctx, ".env")
}

func load(ctx context.Context, envFile string) (*AppConfig, error) {
	loaded := ""
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
		loaded = envFile
	}

	var cfg AppConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	cfg.EnvFile = loaded

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown enum values and nonsensical limits.
func (c *AppConfig) Validate() error {
	var problems []string

	switch weather.Units(c.ProviderUnits) {
	case weather.UnitsImperial, weather.UnitsStandard:
	default:
		problems = append(problems, fmt.Sprintf("PROVIDER_UNITS must be imperial or standard, got %q", c.ProviderUnits))
	}
	if _, err := weather.ParseStrategy(c.ResolutionStrategy); err != nil {
		problems = append(problems, fmt.Sprintf("RESOLUTION_STRATEGY: %v", err))
	}
	switch c.Geocoder {
	case GeocoderProvider, GeocoderGoogle:
	default:
		problems = append(problems, fmt.Sprintf("GEOCODER must be provider or google, got %q", c.Geocoder))
	}
	switch c.HistoryDriver {
	case store.DriverMemory, store.DriverSQLite, store.DriverPostgres:
	default:
		problems = append(problems, fmt.Sprintf("HISTORY_DRIVER must be memory, sqlite or postgres, got %q", c.HistoryDriver))
	}
	if c.HistoryMaxEntries < 0 {
		problems = append(problems, "HISTORY_MAX_ENTRIES must not be negative")
	}
	if c.HistoryMaxAge < 0 {
		problems = append(problems, "HISTORY_MAX_AGE must not be negative")
	}
	if c.HTTPTimeout <= 0 {
		problems = append(problems, "HTTP_TIMEOUT must be positive")
	}
	if c.ProviderMaxRetries < 0 {
		problems = append(problems, "PROVIDER_MAX_RETRIES must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", weather.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// Provider returns the OpenWeatherMap client settings.
func (c *AppConfig) Provider() providers.Config {
	return providers.Config{
		APIKey:         c.APIKey,
		BaseURL:        c.APIBaseURL,
		Units:          weather.Units(c.ProviderUnits),
		MaxRetries:     c.ProviderMaxRetries,
		CircuitBreaker: c.ProviderCircuitBreaker,
	}
}

// History returns the options shared by every history backend.
func (c *AppConfig) History() store.Options {
	return store.Options{
		MaxEntries:      c.HistoryMaxEntries,
		CaseInsensitive: c.HistoryCaseInsensitive,
	}
}
