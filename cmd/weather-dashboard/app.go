package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/logging"
	"github.com/i474232898/weather-dashboard/internal/metrics"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

// application holds the dependencies shared by every command.
type application struct {
	cfg      *config.AppConfig
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Collector
	history  store.HistoryBackend
}

func newApplication(ctx context.Context) (*application, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	if cfg.EnvFile != "" {
		logger.Info("loaded environment file", zap.String("path", cfg.EnvFile))
	} else {
		logger.Info("no .env file found; using process environment")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	history, err := store.New(ctx, cfg.HistoryDriver, cfg.HistoryDSN, cfg.History(), logger)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("open history store: %w", err)
	}

	return &application{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		metrics:  metrics.NewCollector("weather_dashboard", reg),
		history:  history,
	}, nil
}

// aggregator builds the provider client and weather pipeline. Missing
// provider credentials fail here.
func (a *application) aggregator() (*weather.Aggregator, error) {
	httpClient := &http.Client{Timeout: a.cfg.HTTPTimeout}

	provider, err := providers.NewOpenWeatherClient(httpClient, a.cfg.Provider(), a.logger, a.metrics)
	if err != nil {
		if errors.Is(err, weather.ErrConfiguration) {
			a.logger.Error("weather provider is not configured", zap.Error(err))
		}
		return nil, err
	}

	strategy, err := weather.ParseStrategy(a.cfg.ResolutionStrategy)
	if err != nil {
		return nil, err
	}

	opts := []weather.AggregatorOption{
		weather.WithStrategy(strategy),
		weather.WithSampler(weather.NewSampler(a.cfg.ForecastSlot)),
		weather.WithMetrics(a.metrics),
	}
	if a.cfg.Geocoder == config.GeocoderGoogle {
		g, err := providers.NewGoogleGeocoder(a.cfg.GoogleGeocoderKey, a.cfg.HTTPTimeout, a.logger, a.metrics)
		if err != nil {
			return nil, err
		}
		opts = append(opts, weather.WithGeocoder(g))
	}

	return weather.NewAggregator(provider, a.logger, opts...), nil
}

func (a *application) Close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Warn("failed to close history store", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
