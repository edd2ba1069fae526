package common

import (
	"net/url"
	"strings"
)

// HasAny reports whether s contains any of the substrings.
func HasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// CleanName trims s and collapses inner runs of whitespace to one space.
func CleanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// HistoryKey is the deduplication key for a city name.
func HistoryKey(name string, caseInsensitive bool) string {
	key := CleanName(name)
	if caseInsensitive {
		key = strings.ToLower(key)
	}
	return key
}

// RedactQuery replaces the values of the given query parameters in rawURL.
// Unparseable input is returned as "<redacted>".
func RedactQuery(rawURL string, params ...string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<redacted>"
	}
	q := u.Query()
	for _, p := range params {
		if q.Has(p) {
			q.Set(p, "REDACTED")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
