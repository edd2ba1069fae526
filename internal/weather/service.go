package weather

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/metrics"
)

// Service serves searches: it runs the aggregator and records successful
// searches in the history store.
type Service struct {
	aggregator *Aggregator
	history    HistoryStore
	logger     *zap.Logger
	metrics    *metrics.Collector
}

// NewService creates a new Service.
func NewService(aggregator *Aggregator, history HistoryStore, logger *zap.Logger, m *metrics.Collector) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		aggregator: aggregator,
		history:    history,
		logger:     logger,
		metrics:    m,
	}
}

// Search returns the weather report for city and saves the city to history.
// A history failure is logged and never affects the returned report.
func (s *Service) Search(ctx context.Context, city string) (WeatherReport, error) {
	report, err := s.aggregator.GetWeather(ctx, city)
	if err != nil {
		return WeatherReport{}, err
	}

	s.recordSearch(ctx, city, report.Current)
	return report, nil
}

func (s *Service) recordSearch(ctx context.Context, query string, current CurrentWeather) {
	if !current.EligibleForHistory() {
		s.metrics.RecordHistoryFailure()
		s.logger.Warn("not saving search to history: current weather lacks id or city",
			zap.String("query", query),
			zap.Int("id", current.ProviderID),
			zap.String("city", current.City))
		return
	}

	if s.history == nil {
		return
	}

	if _, err := s.history.Add(ctx, current.City); err != nil {
		s.metrics.RecordHistoryFailure()
		s.logger.Warn("failed to save search to history",
			zap.String("city", current.City),
			zap.Error(err))
		return
	}

	s.logger.Debug("saved search to history", zap.String("city", current.City))
}

// History lists previously searched cities in insertion order.
func (s *Service) History(ctx context.Context) ([]HistoryEntry, error) {
	if s.history == nil {
		return []HistoryEntry{}, nil
	}
	entries, err := s.history.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// RemoveHistory deletes a history entry. Unknown ids are ignored.
func (s *Service) RemoveHistory(ctx context.Context, id string) error {
	if s.history == nil {
		return nil
	}
	if err := s.history.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove history entry %s: %w", id, err)
	}
	return nil
}
