package store

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

const DriverMemory = "memory"

// HistoryBackend is a weather.HistoryStore that owns resources.
type HistoryBackend interface {
	weather.HistoryStore
	io.Closer
}

// New returns the history backend selected by driver.
func New(ctx context.Context, driver, dsn string, opts Options, logger *zap.Logger) (HistoryBackend, error) {
	switch driver {
	case DriverMemory:
		return NewMemoryStore(opts), nil
	case DriverSQLite, DriverPostgres:
		return OpenSQL(ctx, driver, dsn, opts, logger)
	default:
		return nil, fmt.Errorf("unsupported history driver %q", driver)
	}
}
