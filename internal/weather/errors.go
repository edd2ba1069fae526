package weather

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation marks bad caller input, e.g. an empty city name.
	ErrValidation = errors.New("invalid request")
	// ErrNotFound is returned when the provider has no match for a city.
	ErrNotFound = errors.New("no weather data found")
	// ErrConfiguration is returned when the provider credentials or base URL are missing.
	ErrConfiguration = errors.New("weather provider is not configured")
	// ErrUpstream marks a non-success or unreadable provider response.
	ErrUpstream = errors.New("upstream provider error")
	// ErrMissingData is returned when a successful provider response lacks required fields.
	ErrMissingData = errors.New("provider response missing data")
)

// UpstreamError carries the upstream status and body for diagnostics.
// Body is meant for logs only.
type UpstreamError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: upstream status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": upstream error"
	}
}

// Unwrap exposes ErrUpstream, ErrNotFound for a 404, and the underlying cause.
func (e *UpstreamError) Unwrap() []error {
	errs := []error{ErrUpstream}
	if e.StatusCode == http.StatusNotFound {
		errs = append(errs, ErrNotFound)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// ErrorKind maps an error to a short label for logs and metrics.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrMissingData):
		return "missing_data"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	default:
		return "internal"
	}
}
