package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/metrics"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

const (
	geocodePath  = "/geo/1.0/direct"
	currentPath  = "/data/2.5/weather"
	forecastPath = "/data/2.5/forecast"

	// maxLoggedBody caps how much of an upstream body ends up in logs.
	maxLoggedBody = 512
)

// Config holds the OpenWeatherMap settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Units      weather.Units
	MaxRetries int

	// CircuitBreaker shares one breaker across all calls of a client.
	// Off by default so every call reaches the network.
	CircuitBreaker bool
}

// Validate reports a missing API key or base URL as weather.ErrConfiguration.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.APIKey) == "" {
		missing = append(missing, "API_KEY")
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		missing = append(missing, "API_BASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", weather.ErrConfiguration, strings.Join(missing, ", "))
	}
	switch c.Units {
	case "", weather.UnitsImperial, weather.UnitsStandard:
	default:
		return fmt.Errorf("%w: unsupported units %q", weather.ErrConfiguration, c.Units)
	}
	return nil
}

// OpenWeatherClient implements weather.Provider and weather.Geocoder for OpenWeatherMap.
type OpenWeatherClient struct {
	name    string
	apiKey  string
	baseURL string
	units   weather.Units
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker // nil unless Config.CircuitBreaker
	logger  *zap.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

// NewOpenWeatherClient validates cfg and builds a client over httpClient.
// A missing key or base URL fails here, before any request is made.
func NewOpenWeatherClient(httpClient *http.Client, cfg Config, logger *zap.Logger, m *metrics.Collector) (*OpenWeatherClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	units := cfg.Units
	if units == "" {
		units = weather.UnitsImperial
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	var circuit *gobreaker.CircuitBreaker
	if cfg.CircuitBreaker {
		circuit = newCircuitBreaker("openweather", logger)
	}

	rc := resty.NewWithClient(httpClient).
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetQueryParam("appid", cfg.APIKey)

	return &OpenWeatherClient{
		name:    "openweathermap",
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		units:   units,
		httpCfg: HTTPClientConfig{
			Client: rc,
			Backoff: BackoffConfig{
				MaxRetries:      cfg.MaxRetries,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: circuit,
		logger:  logger.With(zap.String("provider", "openweathermap")),
		metrics: m,
		tracer:  otel.Tracer("github.com/i474232898/weather-dashboard/internal/weather/providers"),
	}, nil
}

func (p *OpenWeatherClient) Name() string {
	return p.name
}

// Geocode resolves city to the single best match.
func (p *OpenWeatherClient) Geocode(ctx context.Context, city string) (weather.Coordinates, error) {
	body, err := p.get(ctx, "geocode", geocodePath, map[string]string{
		"q":     city,
		"limit": "1",
	})
	if err != nil {
		return weather.Coordinates{}, err
	}

	var results []struct {
		Name    string  `json:"name"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
		Country string  `json:"country"`
	}
	if err := decode("openweather geocode", body, &results); err != nil {
		return weather.Coordinates{}, err
	}
	if len(results) == 0 {
		return weather.Coordinates{}, fmt.Errorf("%w: no geocoding match for %q", weather.ErrNotFound, city)
	}

	return weather.Coordinates{Lat: results[0].Lat, Lon: results[0].Lon}, nil
}

// FetchCurrent looks up current conditions by name and returns the
// coordinates embedded in the response.
func (p *OpenWeatherClient) FetchCurrent(ctx context.Context, city string) (weather.CurrentWeather, weather.Coordinates, error) {
	body, err := p.get(ctx, "current", currentPath, map[string]string{
		"q":     city,
		"units": string(p.units),
	})
	if err != nil {
		return weather.CurrentWeather{}, weather.Coordinates{}, err
	}

	var payload currentPayload
	if err := decode("openweather current", body, &payload); err != nil {
		return weather.CurrentWeather{}, weather.Coordinates{}, err
	}

	coords, ok := payload.coordinates()
	if !ok {
		p.logger.Error("current weather response has no coordinates", zap.String("city", city))
		return weather.CurrentWeather{}, weather.Coordinates{}, fmt.Errorf("%w: coordinates for %q", weather.ErrMissingData, city)
	}

	return payload.normalize(p.units), coords, nil
}

// FetchCurrentAt looks up current conditions for coords.
func (p *OpenWeatherClient) FetchCurrentAt(ctx context.Context, coords weather.Coordinates) (weather.CurrentWeather, error) {
	body, err := p.get(ctx, "current", currentPath, map[string]string{
		"lat":   formatCoord(coords.Lat),
		"lon":   formatCoord(coords.Lon),
		"units": string(p.units),
	})
	if err != nil {
		return weather.CurrentWeather{}, err
	}

	var payload currentPayload
	if err := decode("openweather current", body, &payload); err != nil {
		return weather.CurrentWeather{}, err
	}
	return payload.normalize(p.units), nil
}

// FetchForecast returns the 5-day/3-hour forecast entries for coords.
// A response without a list yields no entries and no error.
func (p *OpenWeatherClient) FetchForecast(ctx context.Context, coords weather.Coordinates) ([]weather.RawForecastEntry, error) {
	body, err := p.get(ctx, "forecast", forecastPath, map[string]string{
		"lat":   formatCoord(coords.Lat),
		"lon":   formatCoord(coords.Lon),
		"units": string(p.units),
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		List []struct {
			Dt      int64       `json:"dt"`
			DtTxt   string      `json:"dt_txt"`
			Main    mainBlock   `json:"main"`
			Weather []condition `json:"weather"`
			Wind    windBlock   `json:"wind"`
		} `json:"list"`
	}
	if err := decode("openweather forecast", body, &payload); err != nil {
		return nil, err
	}

	if payload.List == nil {
		p.logger.Warn("forecast response has no list",
			zap.Float64("lat", coords.Lat),
			zap.Float64("lon", coords.Lon))
		return []weather.RawForecastEntry{}, nil
	}

	entries := make([]weather.RawForecastEntry, 0, len(payload.List))
	for _, item := range payload.List {
		icon, desc := firstCondition(item.Weather)
		entries = append(entries, weather.RawForecastEntry{
			Timestamp:   item.Dt,
			TimeText:    item.DtTxt,
			Icon:        icon,
			Description: desc,
			Temp:        item.Main.Temp,
			Units:       p.units,
			Humidity:    item.Main.Humidity,
			WindSpeed:   item.Wind.Speed,
		})
	}
	return entries, nil
}

// get performs one traced, metered provider call.
func (p *OpenWeatherClient) get(ctx context.Context, endpoint, path string, params map[string]string) ([]byte, error) {
	if p == nil {
		return nil, weather.ErrConfiguration
	}
	if p.apiKey == "" || p.baseURL == "" {
		return nil, fmt.Errorf("%w: openweather client has no API key or base URL", weather.ErrConfiguration)
	}

	ctx, span := p.tracer.Start(ctx, "openweather."+endpoint,
		trace.WithAttributes(
			attribute.String("provider", p.name),
			attribute.String("endpoint", endpoint),
		))
	defer span.End()

	start := time.Now()
	body, err := doRequestWithResilience(ctx, "openweather "+endpoint, p.httpCfg, p.circuit,
		func() *resty.Request {
			return p.httpCfg.Client.R().SetQueryParams(params)
		}, path)
	p.metrics.RecordUpstream(p.name, endpoint, weather.ErrorKind(err), time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logFailure(endpoint, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("response.size", len(body)))
	return body, nil
}

func (p *OpenWeatherClient) logFailure(endpoint string, err error) {
	var upstream *weather.UpstreamError
	if !errors.As(err, &upstream) {
		p.logger.Error("provider call failed", zap.String("endpoint", endpoint), zap.Error(err))
		return
	}

	fields := []zap.Field{
		zap.String("endpoint", endpoint),
		zap.Int("status", upstream.StatusCode),
		zap.String("body", truncate(upstream.Body, maxLoggedBody)),
		zap.Error(err),
	}
	if upstream.StatusCode == http.StatusNotFound {
		p.logger.Info("provider has no match", fields...)
		return
	}
	p.logger.Error("provider call failed", fields...)
}

type condition struct {
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

type mainBlock struct {
	Temp     float64 `json:"temp"`
	Humidity float64 `json:"humidity"`
}

type windBlock struct {
	Speed float64 `json:"speed"`
}

type currentPayload struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Dt       int64  `json:"dt"`
	Timezone int    `json:"timezone"`
	Coord    *struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	} `json:"coord"`
	Weather []condition `json:"weather"`
	Main    mainBlock   `json:"main"`
	Wind    windBlock   `json:"wind"`
}

func (c currentPayload) coordinates() (weather.Coordinates, bool) {
	if c.Coord == nil || c.Coord.Lat == nil || c.Coord.Lon == nil {
		return weather.Coordinates{}, false
	}
	return weather.Coordinates{Lat: *c.Coord.Lat, Lon: *c.Coord.Lon}, true
}

// normalize maps the payload to a CurrentWeather dated in the city's local time.
func (c currentPayload) normalize(units weather.Units) weather.CurrentWeather {
	ts := time.Now().UTC()
	if c.Dt != 0 {
		ts = time.Unix(c.Dt, 0).UTC()
	}
	local := ts.In(time.FixedZone("", c.Timezone))

	icon, desc := firstCondition(c.Weather)
	return weather.CurrentWeather{
		ProviderID:      c.ID,
		City:            c.Name,
		Date:            local.Format(weather.DateLayout),
		Icon:            icon,
		IconDescription: desc,
		TempF:           weather.ToFahrenheit(c.Main.Temp, units),
		Humidity:        c.Main.Humidity,
		WindSpeed:       weather.ToMPH(c.Wind.Speed, units),
	}
}

func firstCondition(items []condition) (icon, description string) {
	if len(items) == 0 {
		return "", ""
	}
	return items[0].Icon, items[0].Description
}

func decode(op string, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return &weather.UpstreamError{
			Op:   op,
			Body: truncate(string(body), maxLoggedBody),
			Err:  fmt.Errorf("decode response: %w", err),
		}
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
