package providers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelvins/geocoder"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/common"
	"github.com/i474232898/weather-dashboard/internal/metrics"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// googleNoResults is how the geocoder package reports a ZERO_RESULTS status.
const googleNoResults = "No results found"

// geocodeFunc matches geocoder.Geocoding.
type geocodeFunc func(geocoder.Address) (geocoder.Location, error)

type geocodeResult struct {
	loc geocoder.Location
	err error
}

// GoogleGeocoder resolves city names with the Google Maps Geocoding API.
//
// The geocoder package issues requests on its own http.Client with no
// timeout, so each lookup runs in its own goroutine and Geocode returns as
// soon as ctx is done or the timeout elapses.
type GoogleGeocoder struct {
	lookup  geocodeFunc
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewGoogleGeocoder sets the process-wide geocoder key. A timeout of zero
// leaves lookups bounded only by the caller's context.
func NewGoogleGeocoder(apiKey string, timeout time.Duration, logger *zap.Logger, m *metrics.Collector) (*GoogleGeocoder, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: missing GOOGLE_GEOCODER_API_KEY", weather.ErrConfiguration)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{
		lookup:  geocoder.Geocoding,
		timeout: timeout,
		logger:  logger.With(zap.String("geocoder", "google")),
		metrics: m,
	}, nil
}

// Geocode implements weather.Geocoder.
func (g *GoogleGeocoder) Geocode(ctx context.Context, city string) (weather.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return weather.Coordinates{}, err
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan geocodeResult, 1)
	go func() {
		loc, err := g.geocode(city)
		done <- geocodeResult{loc: loc, err: err}
	}()

	var res geocodeResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = &weather.UpstreamError{Op: "google geocode", Err: ctx.Err()}
	}

	g.metrics.RecordUpstream("google", "geocode", weather.ErrorKind(res.err), time.Since(start))
	if res.err != nil {
		g.logger.Warn("geocoding failed", zap.String("city", city), zap.Error(res.err))
		return weather.Coordinates{}, res.err
	}

	return weather.Coordinates{Lat: res.loc.Latitude, Lon: res.loc.Longitude}, nil
}

func (g *GoogleGeocoder) geocode(city string) (loc geocoder.Location, err error) {
	// geocoder.Geocoding indexes the first result without checking for an
	// empty OK response.
	defer func() {
		if r := recover(); r != nil {
			loc = geocoder.Location{}
			err = fmt.Errorf("%w: no geocoding match for %q", weather.ErrNotFound, city)
		}
	}()

	loc, err = g.lookup(geocoder.Address{City: city})
	if err == nil {
		return loc, nil
	}
	if common.HasAny(err.Error(), googleNoResults) {
		return geocoder.Location{}, fmt.Errorf("%w: no geocoding match for %q", weather.ErrNotFound, city)
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = common.RedactQuery(ue.URL, "key")
	}
	return geocoder.Location{}, &weather.UpstreamError{Op: "google geocode", Err: err}
}
