package weather

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/metrics"
)

// Strategy selects how a city name is resolved before the forecast call.
type Strategy string

const (
	// StrategyDirect asks the provider for current conditions by name and
	// reuses the coordinates from that response.
	StrategyDirect Strategy = "direct"
	// StrategyGeocode geocodes the name first, then fetches current
	// conditions for the resulting coordinates.
	StrategyGeocode Strategy = "geocode"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyDirect:
		return StrategyDirect, nil
	case StrategyGeocode:
		return StrategyGeocode, nil
	default:
		return "", fmt.Errorf("unknown resolution strategy %q", s)
	}
}

// Aggregator runs the weather pipeline: resolve, forecast, sample, compose.
// It holds no per-request state.
type Aggregator struct {
	provider Provider
	geocoder Geocoder
	sampler  *Sampler
	strategy Strategy
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// AggregatorOption customizes an Aggregator.
type AggregatorOption func(*Aggregator)

// WithGeocoder sets the geocoder used by StrategyGeocode.
func WithGeocoder(g Geocoder) AggregatorOption {
	return func(a *Aggregator) { a.geocoder = g }
}

// WithStrategy sets the resolution strategy.
func WithStrategy(s Strategy) AggregatorOption {
	return func(a *Aggregator) { a.strategy = s }
}

// WithSampler replaces the default noon sampler.
func WithSampler(s *Sampler) AggregatorOption {
	return func(a *Aggregator) { a.sampler = s }
}

// WithMetrics records aggregation outcomes on c.
func WithMetrics(c *metrics.Collector) AggregatorOption {
	return func(a *Aggregator) { a.metrics = c }
}

// NewAggregator creates an Aggregator over provider.
func NewAggregator(provider Provider, logger *zap.Logger, opts ...AggregatorOption) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Aggregator{
		provider: provider,
		sampler:  NewSampler(DefaultReportSlot),
		strategy: StrategyDirect,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.geocoder == nil {
		if g, ok := provider.(Geocoder); ok {
			a.geocoder = g
		}
	}
	return a
}

// GetWeather builds the report for cityName. Provider errors are returned
// unchanged; there is no partial result.
func (a *Aggregator) GetWeather(ctx context.Context, cityName string) (WeatherReport, error) {
	start := time.Now()

	report, err := a.getWeather(ctx, cityName)
	a.metrics.RecordAggregation(ErrorKind(err))

	if err != nil {
		a.logger.Debug("weather aggregation failed",
			zap.String("city", cityName),
			zap.String("kind", ErrorKind(err)),
			zap.Error(err))
		return WeatherReport{}, err
	}

	a.logger.Debug("weather aggregation completed",
		zap.String("city", report.Current.City),
		zap.Int("forecast_days", len(report.Days)),
		zap.Duration("took", time.Since(start)))
	return report, nil
}

func (a *Aggregator) getWeather(ctx context.Context, cityName string) (WeatherReport, error) {
	name := strings.TrimSpace(cityName)
	if name == "" {
		return WeatherReport{}, fmt.Errorf("%w: cityName is required", ErrValidation)
	}
	if a.provider == nil {
		return WeatherReport{}, ErrConfiguration
	}

	current, coords, err := a.resolve(ctx, name)
	if err != nil {
		return WeatherReport{}, err
	}

	entries, err := a.provider.FetchForecast(ctx, coords)
	if err != nil {
		return WeatherReport{}, err
	}

	city := current.City
	if city == "" {
		city = name
	}

	return WeatherReport{
		Current: current,
		Days:    a.sampler.Sample(entries, city),
	}, nil
}

// resolve yields current conditions plus the coordinates for the forecast call.
func (a *Aggregator) resolve(ctx context.Context, name string) (CurrentWeather, Coordinates, error) {
	if a.strategy != StrategyGeocode {
		return a.provider.FetchCurrent(ctx, name)
	}

	if a.geocoder == nil {
		return CurrentWeather{}, Coordinates{}, fmt.Errorf("%w: geocode strategy without a geocoder", ErrConfiguration)
	}

	coords, err := a.geocoder.Geocode(ctx, name)
	if err != nil {
		return CurrentWeather{}, Coordinates{}, err
	}

	current, err := a.provider.FetchCurrentAt(ctx, coords)
	if err != nil {
		return CurrentWeather{}, Coordinates{}, err
	}
	return current, coords, nil
}
