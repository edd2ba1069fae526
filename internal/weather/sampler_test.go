package weather

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threeHourFeed builds a provider-style feed starting at start, one entry every 3 hours.
func threeHourFeed(start time.Time, n int, units Units) []RawForecastEntry {
	entries := make([]RawForecastEntry, 0, n)
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * 3 * time.Hour).UTC()
		entries = append(entries, RawForecastEntry{
			Timestamp:   ts.Unix(),
			TimeText:    ts.Format(providerTimeLayout),
			Icon:        "01d",
			Description: fmt.Sprintf("slot %d", i),
			Temp:        float64(40 + i),
			Units:       units,
			Humidity:    50,
			WindSpeed:   3,
		})
	}
	return entries
}

func TestSamplePicksNoonEntries(t *testing.T) {
	start := time.Date(2023, 11, 14, 21, 0, 0, 0, time.UTC)
	entries := threeHourFeed(start, 40, UnitsImperial)

	days := NewSampler("").Sample(entries, "Boston")

	require.Len(t, days, 5)
	wantDates := []string{"11/15/2023", "11/16/2023", "11/17/2023", "11/18/2023", "11/19/2023"}
	for i, d := range days {
		assert.Equal(t, wantDates[i], d.Date)
		assert.Equal(t, "Boston", d.City)
	}
	// 21:00 + 5 slots = 12:00 next day.
	assert.Equal(t, "slot 5", days[0].IconDescription)
	assert.Equal(t, 45.0, days[0].TempF)
}

func TestSampleNoNoonEntriesReturnsEmpty(t *testing.T) {
	start := time.Date(2023, 11, 14, 1, 30, 0, 0, time.UTC)
	entries := threeHourFeed(start, 40, UnitsImperial)

	days := NewSampler(DefaultReportSlot).Sample(entries, "Nowhere")

	assert.NotNil(t, days)
	assert.Empty(t, days)
}

func TestSampleEmptyInput(t *testing.T) {
	assert.Empty(t, NewSampler("").Sample(nil, "x"))
}

func TestSampleNeverRepeatsDate(t *testing.T) {
	noon := RawForecastEntry{TimeText: "2023-11-15 12:00:00", Temp: 50}
	dup := RawForecastEntry{TimeText: "2023-11-15 12:00:00", Temp: 99}
	next := RawForecastEntry{TimeText: "2023-11-16 12:00:00", Temp: 51}

	days := NewSampler("").Sample([]RawForecastEntry{noon, dup, next}, "x")

	require.Len(t, days, 2)
	assert.Equal(t, 50.0, days[0].TempF)
	assert.Equal(t, "11/16/2023", days[1].Date)
}

func TestSampleSkipsDaysWithoutSlot(t *testing.T) {
	entries := []RawForecastEntry{
		{TimeText: "2023-11-15 09:00:00"},
		{TimeText: "2023-11-15 15:00:00"},
		{TimeText: "2023-11-16 12:00:00"},
	}

	days := NewSampler("").Sample(entries, "x")

	require.Len(t, days, 1)
	assert.Equal(t, "11/16/2023", days[0].Date)
}

func TestSampleDerivesTimeFromTimestamp(t *testing.T) {
	ts := time.Date(2023, 11, 20, 12, 0, 0, 0, time.UTC).Unix()
	entries := []RawForecastEntry{{Timestamp: ts, Temp: 60}}

	days := NewSampler("").Sample(entries, "x")

	require.Len(t, days, 1)
	assert.Equal(t, "11/20/2023", days[0].Date)
}

func TestSampleConvertsStandardUnits(t *testing.T) {
	entries := []RawForecastEntry{{TimeText: "2023-11-15 12:00:00", Temp: 273.15, WindSpeed: 1, Units: UnitsStandard}}

	days := NewSampler("").Sample(entries, "x")

	require.Len(t, days, 1)
	assert.InDelta(t, 32.0, days[0].TempF, 1e-9)
	assert.InDelta(t, 2.2369, days[0].WindSpeed, 1e-3)
}

func TestSampleCustomSlot(t *testing.T) {
	start := time.Date(2023, 11, 14, 0, 0, 0, 0, time.UTC)
	entries := threeHourFeed(start, 16, UnitsImperial)

	days := NewSampler("15:00:00").Sample(entries, "x")

	require.Len(t, days, 2)
	assert.Equal(t, "11/14/2023", days[0].Date)
	assert.Equal(t, "slot 5", days[0].IconDescription)
}

func TestSampleIgnoresMalformedTimeText(t *testing.T) {
	entries := []RawForecastEntry{{TimeText: "tomorrow at noon"}, {TimeText: "2023-11-15 12:00:00"}}

	days := NewSampler("").Sample(entries, "x")

	require.Len(t, days, 1)
}
