package weather

import (
	"strings"
	"time"
)

// DefaultReportSlot is the provider time-of-day text treated as "noon".
const DefaultReportSlot = "12:00:00"

const providerTimeLayout = "2006-01-02 15:04:05"

// Sampler picks one forecast entry per calendar day from the 3-hour feed.
type Sampler struct {
	slot string
}

// NewSampler returns a Sampler matching entries at the given time-of-day text.
// An empty slot falls back to DefaultReportSlot.
func NewSampler(slot string) *Sampler {
	if slot == "" {
		slot = DefaultReportSlot
	}
	return &Sampler{slot: slot}
}

// Slot returns the time-of-day text the sampler matches on.
func (s *Sampler) Slot() string {
	return s.slot
}

// Sample returns the entries that fall exactly on the report slot, at most one
// per date, in input order. Days without a matching entry are skipped.
func (s *Sampler) Sample(entries []RawForecastEntry, city string) []ForecastDay {
	days := make([]ForecastDay, 0, len(entries)/8+1)
	seen := make(map[string]struct{}, len(entries)/8+1)

	for _, e := range entries {
		date, clock, ok := splitEntryTime(e)
		if !ok || clock != s.slot {
			continue
		}
		if _, dup := seen[date]; dup {
			continue
		}
		seen[date] = struct{}{}

		days = append(days, ForecastDay{
			City:            city,
			Date:            date,
			Icon:            e.Icon,
			IconDescription: e.Description,
			TempF:           ToFahrenheit(e.Temp, e.Units),
			Humidity:        e.Humidity,
			WindSpeed:       ToMPH(e.WindSpeed, e.Units),
		})
	}

	return days
}

// splitEntryTime returns the formatted calendar date and the HH:MM:SS text of an entry.
func splitEntryTime(e RawForecastEntry) (date, clock string, ok bool) {
	text := strings.TrimSpace(e.TimeText)
	if text == "" {
		if e.Timestamp == 0 {
			return "", "", false
		}
		text = time.Unix(e.Timestamp, 0).UTC().Format(providerTimeLayout)
	}

	ts, err := time.Parse(providerTimeLayout, text)
	if err != nil {
		return "", "", false
	}
	return ts.Format(DateLayout), ts.Format("15:04:05"), true
}
