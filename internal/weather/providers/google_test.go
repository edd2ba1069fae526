package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kelvins/geocoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// googleAPI points the geocoder package at a local server answering body.
func googleAPI(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "key" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"bad key","results":[]}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	prev := geocoder.ApiUrl
	geocoder.ApiUrl = srv.URL + "/maps/api/geocode/json?"
	t.Cleanup(func() {
		geocoder.ApiUrl = prev
		srv.Close()
	})
	return srv
}

func TestNewGoogleGeocoderRequiresKey(t *testing.T) {
	_, err := NewGoogleGeocoder(" ", 0, nil, nil)
	assert.ErrorIs(t, err, weather.ErrConfiguration)
}

func TestGoogleGeocoderResolvesCity(t *testing.T) {
	googleAPI(t, `{"status":"OK","results":[{"geometry":{"location":{"lat":48.8566,"lng":2.3522}}}]}`)
	g, err := NewGoogleGeocoder("key", time.Second, zaptest.NewLogger(t), nil)
	require.NoError(t, err)

	coords, err := g.Geocode(context.Background(), "Paris")

	require.NoError(t, err)
	assert.Equal(t, weather.Coordinates{Lat: 48.8566, Lon: 2.3522}, coords)
}

func TestGoogleGeocoderZeroResultsIsNotFound(t *testing.T) {
	googleAPI(t, `{"status":"ZERO_RESULTS","results":[]}`)
	g, err := NewGoogleGeocoder("key", time.Second, zaptest.NewLogger(t), nil)
	require.NoError(t, err)

	_, err = g.Geocode(context.Background(), "Atlantis")

	assert.ErrorIs(t, err, weather.ErrNotFound)
	assert.NotErrorIs(t, err, weather.ErrUpstream)
}

func TestGoogleGeocoderEmptyOKIsNotFound(t *testing.T) {
	googleAPI(t, `{"status":"OK","results":[]}`)
	g, err := NewGoogleGeocoder("key", time.Second, zaptest.NewLogger(t), nil)
	require.NoError(t, err)

	var coords weather.Coordinates
	require.NotPanics(t, func() {
		coords, err = g.Geocode(context.Background(), "Atlantis")
	})

	assert.ErrorIs(t, err, weather.ErrNotFound)
	assert.Zero(t, coords)
}

func TestGoogleGeocoderUpstreamFailures(t *testing.T) {
	googleAPI(t, `{"status":"OVER_QUERY_LIMIT","results":[]}`)
	g, err := NewGoogleGeocoder("key", time.Second, zaptest.NewLogger(t), nil)
	require.NoError(t, err)

	_, err = g.Geocode(context.Background(), "Paris")

	assert.ErrorIs(t, err, weather.ErrUpstream)
	assert.NotErrorIs(t, err, weather.ErrNotFound)
}

func TestGoogleGeocoderTransportErrorDoesNotLeakKey(t *testing.T) {
	srv := googleAPI(t, `{}`)
	srv.Close()
	g, err := NewGoogleGeocoder("key-s3cret", time.Second, zaptest.NewLogger(t), nil)
	require.NoError(t, err)

	_, err = g.Geocode(context.Background(), "Paris")

	require.ErrorIs(t, err, weather.ErrUpstream)
	assert.NotContains(t, err.Error(), "key-s3cret")
}

func TestGoogleGeocoderHonoursCanceledContext(t *testing.T) {
	g, err := NewGoogleGeocoder("key", 0, nil, nil)
	require.NoError(t, err)
	called := false
	g.lookup = func(geocoder.Address) (geocoder.Location, error) {
		called = true
		return geocoder.Location{}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Geocode(ctx, "Paris")

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestGoogleGeocoderStalledLookupDoesNotBlockOthers(t *testing.T) {
	g, err := NewGoogleGeocoder("key", 0, zaptest.NewLogger(t), nil)
	require.NoError(t, err)

	started := make(chan struct{}, 2)
	release := make(chan struct{})
	g.lookup = func(geocoder.Address) (geocoder.Location, error) {
		started <- struct{}{}
		<-release
		return geocoder.Location{Latitude: 1, Longitude: 2}, nil
	}

	first := make(chan error, 1)
	go func() {
		_, err := g.Geocode(context.Background(), "Paris")
		first <- err
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	begin := time.Now()
	_, err = g.Geocode(ctx, "Lyon")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(begin), time.Second)

	close(release)
	select {
	case err := <-first:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("first lookup never returned")
	}
}

func TestGoogleGeocoderTimeout(t *testing.T) {
	g, err := NewGoogleGeocoder("key", 20*time.Millisecond, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	release := make(chan struct{})
	defer close(release)
	g.lookup = func(geocoder.Address) (geocoder.Location, error) {
		<-release
		return geocoder.Location{}, nil
	}

	_, err = g.Geocode(context.Background(), "Paris")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, weather.ErrUpstream)
}
