package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/i474232898/weather-dashboard/internal/metrics"
)

type fakePruner struct {
	calls  atomic.Int32
	cutoff atomic.Value
	n      int
	err    error
}

func (f *fakePruner) Prune(_ context.Context, before time.Time) (int, error) {
	f.calls.Add(1)
	f.cutoff.Store(before)
	return f.n, f.err
}

func TestRunOnceUsesMaxAgeCutoff(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := &fakePruner{n: 3}
	m := metrics.NewCollector("test", prometheus.NewRegistry())
	s := New(p, 24*time.Hour, time.Hour, zaptest.NewLogger(t), m)
	s.now = func() time.Time { return now }

	n := s.RunOnce(context.Background())

	assert.Equal(t, 3, n)
	assert.Equal(t, now.Add(-24*time.Hour), p.cutoff.Load())
	assert.Equal(t, 3.0, testutil.ToFloat64(m.HistoryEntriesPruned))
}

func TestRunOnceLogsFailure(t *testing.T) {
	p := &fakePruner{err: errors.New("db locked")}
	s := New(p, time.Hour, time.Hour, zaptest.NewLogger(t), nil)

	assert.Zero(t, s.RunOnce(context.Background()))
}

func TestStartDisabledWithoutMaxAge(t *testing.T) {
	p := &fakePruner{}
	s := New(p, 0, time.Millisecond, nil, nil)

	require.NoError(t, s.Start())
	defer s.Stop()

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, p.calls.Load())
}

func TestStartRunsPruneJob(t *testing.T) {
	p := &fakePruner{}
	s := New(p, time.Hour, 50*time.Millisecond, zaptest.NewLogger(t), nil)

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return p.calls.Load() > 0 }, 2*time.Second, 10*time.Millisecond)
}
