package weather

import (
	"context"
	"time"
)

// Geocoder resolves a city name to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, city string) (Coordinates, error)
}

// Provider abstracts the upstream weather API (OpenWeatherMap).
type Provider interface {
	Name() string
	// FetchCurrent looks up current conditions by city name and returns the
	// coordinates embedded in the response.
	FetchCurrent(ctx context.Context, city string) (CurrentWeather, Coordinates, error)
	// FetchCurrentAt looks up current conditions for known coordinates.
	FetchCurrentAt(ctx context.Context, coords Coordinates) (CurrentWeather, error)
	// FetchForecast returns the 3-hour forecast entries in time order.
	FetchForecast(ctx context.Context, coords Coordinates) ([]RawForecastEntry, error)
}

// HistoryStore is the contract for the search history backends.
type HistoryStore interface {
	// Add saves a city name; adding an existing name is a no-op returning the stored entry.
	Add(ctx context.Context, name string) (HistoryEntry, error)
	// List returns entries in insertion order.
	List(ctx context.Context) ([]HistoryEntry, error)
	// Remove deletes an entry by id. Unknown ids are not an error.
	Remove(ctx context.Context, id string) error
	// Prune deletes entries created before the cutoff and returns how many were removed.
	Prune(ctx context.Context, before time.Time) (int, error)
}
