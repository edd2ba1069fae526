package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-dashboard/internal/common"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var (
	// ErrEmptyName is returned when a blank city name is added to history.
	ErrEmptyName = errors.New("history entry name is empty")
)

// Options controls retention and deduplication for every history backend.
type Options struct {
	// MaxEntries bounds the history; the oldest entries are evicted first.
	// Zero or less means unlimited.
	MaxEntries int
	// CaseInsensitive makes "paris" and "Paris" the same entry.
	CaseInsensitive bool
}

// MemoryStore is a concurrency-safe in-memory search history.
type MemoryStore struct {
	mu sync.RWMutex

	// entries in insertion order
	entries []weather.HistoryEntry
	// key: dedupe key, value: entry id
	byKey map[string]string

	opts Options
	now  func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{
		byKey: make(map[string]string),
		opts:  opts,
		now:   time.Now,
	}
}

// Add appends name unless it is already present, then enforces MaxEntries.
func (s *MemoryStore) Add(_ context.Context, name string) (weather.HistoryEntry, error) {
	name = common.CleanName(name)
	if name == "" {
		return weather.HistoryEntry{}, ErrEmptyName
	}
	key := common.HistoryKey(name, s.opts.CaseInsensitive)

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byKey[key]; ok {
		for _, e := range s.entries {
			if e.ID == id {
				return e, nil
			}
		}
	}

	entry := weather.HistoryEntry{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: s.now().UTC(),
	}
	s.entries = append(s.entries, entry)
	s.byKey[key] = entry.ID

	// Enforce retention by count.
	if s.opts.MaxEntries > 0 && len(s.entries) > s.opts.MaxEntries {
		over := len(s.entries) - s.opts.MaxEntries
		for _, e := range s.entries[:over] {
			delete(s.byKey, common.HistoryKey(e.Name, s.opts.CaseInsensitive))
		}
		s.entries = append([]weather.HistoryEntry(nil), s.entries[over:]...)
	}

	return entry, nil
}

// List returns a copy of the history in insertion order.
func (s *MemoryStore) List(context.Context) ([]weather.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]weather.HistoryEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// Remove deletes the entry with id. Unknown ids are ignored.
func (s *MemoryStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.ID == id {
			delete(s.byKey, common.HistoryKey(e.Name, s.opts.CaseInsensitive))
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

// Prune removes entries created before cutoff.
func (s *MemoryStore) Prune(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	removed := 0
	for _, e := range s.entries {
		if e.CreatedAt.Before(before) {
			delete(s.byKey, common.HistoryKey(e.Name, s.opts.CaseInsensitive))
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return removed, nil
}

// Close is a no-op; it lets MemoryStore stand in for the SQL store.
func (s *MemoryStore) Close() error {
	return nil
}
