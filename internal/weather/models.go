package weather

import (
	"encoding/json"
	"time"
)

// DateLayout is the calendar date format used across reports (M/D/YYYY).
const DateLayout = "1/2/2006"

// Units identifies the unit system a provider value was reported in.
type Units string

const (
	UnitsImperial Units = "imperial"
	UnitsStandard Units = "standard"
)

// Coordinates locate a city for the forecast call.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CurrentWeather is the normalized current-conditions record.
// ProviderID and City must both be set for the record to be saved to history.
type CurrentWeather struct {
	ProviderID      int     `json:"id"`
	City            string  `json:"city"`
	Date            string  `json:"date"`
	Icon            string  `json:"icon"`
	IconDescription string  `json:"iconDescription"`
	TempF           float64 `json:"tempF"`
	Humidity        float64 `json:"humidity"`
	WindSpeed       float64 `json:"windSpeed"`
}

// EligibleForHistory reports whether the record carries enough identity to be saved.
func (c CurrentWeather) EligibleForHistory() bool {
	return c.ProviderID != 0 && c.City != ""
}

// ForecastDay is one calendar day's representative sample.
type ForecastDay struct {
	City            string  `json:"city"`
	Date            string  `json:"date"`
	Icon            string  `json:"icon"`
	IconDescription string  `json:"iconDescription"`
	TempF           float64 `json:"tempF"`
	Humidity        float64 `json:"humidity"`
	WindSpeed       float64 `json:"windSpeed"`
}

// RawForecastEntry is a single 3-hour forecast slot as returned by the provider.
type RawForecastEntry struct {
	Timestamp   int64
	TimeText    string // provider "YYYY-MM-DD HH:MM:SS" text, UTC
	Icon        string
	Description string
	Temp        float64
	Units       Units
	Humidity    float64
	WindSpeed   float64
}

// WeatherReport is the aggregated response: current conditions followed by
// one entry per forecast day in ascending date order.
type WeatherReport struct {
	Current CurrentWeather
	Days    []ForecastDay
}

// Len returns the number of elements in the serialized report.
func (r WeatherReport) Len() int {
	return 1 + len(r.Days)
}

// MarshalJSON encodes the report as [current, day1, day2, ...].
func (r WeatherReport) MarshalJSON() ([]byte, error) {
	items := make([]any, 0, r.Len())
	items = append(items, r.Current)
	for _, d := range r.Days {
		items = append(items, d)
	}
	return json.Marshal(items)
}

// HistoryEntry is one previously searched city.
type HistoryEntry struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"-" db:"-"`
}
