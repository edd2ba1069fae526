package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

// newBackends opens every local backend with the same options and a shared fake clock.
func newBackends(t *testing.T, opts Options, c *clock) map[string]HistoryBackend {
	t.Helper()

	mem := NewMemoryStore(opts)
	mem.now = c.now

	sqlStore, err := OpenSQL(context.Background(), DriverSQLite,
		filepath.Join(t.TempDir(), "history.db"), opts, zaptest.NewLogger(t))
	require.NoError(t, err)
	sqlStore.now = c.now
	t.Cleanup(func() { _ = sqlStore.Close() })

	return map[string]HistoryBackend{
		DriverMemory: mem,
		DriverSQLite: sqlStore,
	}
}

func names(entries []weather.HistoryEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestAddKeepsInsertionOrderAndDedupes(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	for name, s := range newBackends(t, Options{MaxEntries: 20}, c) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first, err := s.Add(ctx, "Paris")
			require.NoError(t, err)
			_, err = s.Add(ctx, "Boston")
			require.NoError(t, err)
			again, err := s.Add(ctx, " Paris ")
			require.NoError(t, err)

			assert.Equal(t, first.ID, again.ID)
			entries, err := s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"Paris", "Boston"}, names(entries))
			for _, e := range entries {
				_, err := uuid.Parse(e.ID)
				assert.NoError(t, err)
			}
		})
	}
}

func TestAddCaseSensitivity(t *testing.T) {
	c := &clock{t: time.Now()}
	for name, s := range newBackends(t, Options{}, c) {
		t.Run(name+"/sensitive", func(t *testing.T) {
			ctx := context.Background()
			_, _ = s.Add(ctx, "Paris")
			_, _ = s.Add(ctx, "paris")
			entries, err := s.List(ctx)
			require.NoError(t, err)
			assert.Len(t, entries, 2)
		})
	}
	for name, s := range newBackends(t, Options{CaseInsensitive: true}, c) {
		t.Run(name+"/insensitive", func(t *testing.T) {
			ctx := context.Background()
			_, _ = s.Add(ctx, "Paris")
			_, _ = s.Add(ctx, "paris")
			entries, err := s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"Paris"}, names(entries))
		})
	}
}

func TestAddEvictsOldest(t *testing.T) {
	c := &clock{t: time.Now()}
	for name, s := range newBackends(t, Options{MaxEntries: 2}, c) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, city := range []string{"Paris", "Boston", "Tokyo"} {
				_, err := s.Add(ctx, city)
				require.NoError(t, err)
			}

			entries, err := s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"Boston", "Tokyo"}, names(entries))

			// the evicted name can be added again
			_, err = s.Add(ctx, "Paris")
			require.NoError(t, err)
			entries, err = s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"Tokyo", "Paris"}, names(entries))
		})
	}
}

func TestAddRejectsEmptyName(t *testing.T) {
	for name, s := range newBackends(t, Options{}, &clock{t: time.Now()}) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Add(context.Background(), "   ")
			assert.ErrorIs(t, err, ErrEmptyName)
		})
	}
}

func TestRemove(t *testing.T) {
	for name, s := range newBackends(t, Options{}, &clock{t: time.Now()}) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			paris, err := s.Add(ctx, "Paris")
			require.NoError(t, err)
			_, err = s.Add(ctx, "Boston")
			require.NoError(t, err)

			require.NoError(t, s.Remove(ctx, "no-such-id"))
			require.NoError(t, s.Remove(ctx, paris.ID))

			entries, err := s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"Boston"}, names(entries))
		})
	}
}

func TestListEmpty(t *testing.T) {
	for name, s := range newBackends(t, Options{}, &clock{t: time.Now()}) {
		t.Run(name, func(t *testing.T) {
			entries, err := s.List(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, entries)
			assert.Empty(t, entries)
		})
	}
}

func TestPrune(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := &clock{t: start}
	for name, s := range newBackends(t, Options{}, c) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c.t = start
			_, err := s.Add(ctx, "Paris")
			require.NoError(t, err)
			c.t = start.Add(2 * time.Hour)
			_, err = s.Add(ctx, "Boston")
			require.NoError(t, err)

			n, err := s.Prune(ctx, start.Add(time.Hour))
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			entries, err := s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"Boston"}, names(entries))
		})
	}
}

func TestSQLStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := OpenSQL(ctx, DriverSQLite, path, Options{}, nil)
	require.NoError(t, err)
	_, err = s.Add(ctx, "Paris")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQL(ctx, DriverSQLite, path, Options{}, nil)
	require.NoError(t, err)
	defer s.Close()

	entries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Paris"}, names(entries))
}

func TestSQLStoreRekeysWhenCaseSettingChanges(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := OpenSQL(ctx, DriverSQLite, path, Options{}, nil)
	require.NoError(t, err)
	paris, err := s.Add(ctx, "Paris")
	require.NoError(t, err)
	_, err = s.Add(ctx, "Boston")
	require.NoError(t, err)
	_, err = s.Add(ctx, "paris")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQL(ctx, DriverSQLite, path, Options{CaseInsensitive: true}, zaptest.NewLogger(t))
	require.NoError(t, err)

	entries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Paris", "Boston"}, names(entries))

	again, err := s.Add(ctx, "PARIS")
	require.NoError(t, err)
	assert.Equal(t, paris.ID, again.ID)
	require.NoError(t, s.Close())

	// back to case-sensitive: existing keys follow, new spellings are distinct
	s, err = OpenSQL(ctx, DriverSQLite, path, Options{}, nil)
	require.NoError(t, err)
	defer s.Close()

	again, err = s.Add(ctx, "Paris")
	require.NoError(t, err)
	assert.Equal(t, paris.ID, again.ID)
	_, err = s.Add(ctx, "paris")
	require.NoError(t, err)
	entries, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Paris", "Boston", "paris"}, names(entries))
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), "mongo", "", Options{}, nil)
	assert.Error(t, err)

	b, err := New(context.Background(), DriverMemory, "", Options{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, b)
}
