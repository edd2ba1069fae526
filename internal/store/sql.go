package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/i474232898/weather-dashboard/internal/common"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var schemas = map[string]string{
	DriverSQLite: `CREATE TABLE IF NOT EXISTS search_history (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		id         TEXT    NOT NULL UNIQUE,
		name       TEXT    NOT NULL,
		name_key   TEXT    NOT NULL UNIQUE,
		created_at INTEGER NOT NULL
	)`,
	DriverPostgres: `CREATE TABLE IF NOT EXISTS search_history (
		seq        BIGSERIAL PRIMARY KEY,
		id         TEXT      NOT NULL UNIQUE,
		name       TEXT      NOT NULL,
		name_key   TEXT      NOT NULL UNIQUE,
		created_at BIGINT    NOT NULL
	)`,
}

// historyRow is the database shape of a history entry.
type historyRow struct {
	Seq       int64  `db:"seq"`
	ID        string `db:"id"`
	Name      string `db:"name"`
	CreatedAt int64  `db:"created_at"`
}

func (r historyRow) entry() weather.HistoryEntry {
	return weather.HistoryEntry{
		ID:        r.ID,
		Name:      r.Name,
		CreatedAt: time.UnixMilli(r.CreatedAt).UTC(),
	}
}

// SQLStore keeps the search history in sqlite or postgres.
type SQLStore struct {
	db     *sqlx.DB
	driver string
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// OpenSQL connects to dsn with driver, verifies the connection and
// creates the history table when it does not exist yet.
func OpenSQL(ctx context.Context, driver, dsn string, opts Options, logger *zap.Logger) (*SQLStore, error) {
	schema, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported history driver %q", driver)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if driver == DriverSQLite {
		// a single writer keeps sqlite free of SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	s := &SQLStore{
		db:     db,
		driver: driver,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
	if err := s.rekey(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("history store ready", zap.String("driver", driver), zap.Int("max_entries", opts.MaxEntries))
	return s, nil
}

// rekey recomputes name_key under the current options, so a database written
// with a different case setting keeps one entry per key. The oldest entry of
// a group survives.
func (s *SQLStore) rekey(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history rekey: %w", err)
	}
	defer tx.Rollback()

	var rows []struct {
		Seq  int64  `db:"seq"`
		ID   string `db:"id"`
		Name string `db:"name"`
		Key  string `db:"name_key"`
	}
	if err := tx.SelectContext(ctx, &rows, `SELECT seq, id, name, name_key FROM search_history ORDER BY seq`); err != nil {
		return fmt.Errorf("read history keys: %w", err)
	}

	seen := make(map[string]bool, len(rows))
	changed := make(map[string]string)
	var dropped int
	for _, r := range rows {
		key := common.HistoryKey(r.Name, s.opts.CaseInsensitive)
		if seen[key] {
			if _, err := tx.ExecContext(ctx, s.db.Rebind(`DELETE FROM search_history WHERE seq = ?`), r.Seq); err != nil {
				return fmt.Errorf("drop duplicate history entry: %w", err)
			}
			dropped++
			continue
		}
		seen[key] = true
		if key != r.Key {
			changed[r.ID] = key
		}
	}

	// changed rows move to their id first so no intermediate name_key collides.
	update := s.db.Rebind(`UPDATE search_history SET name_key = ? WHERE id = ?`)
	for id := range changed {
		if _, err := tx.ExecContext(ctx, update, id, id); err != nil {
			return fmt.Errorf("rekey history entry: %w", err)
		}
	}
	for id, key := range changed {
		if _, err := tx.ExecContext(ctx, update, key, id); err != nil {
			return fmt.Errorf("rekey history entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history rekey: %w", err)
	}
	if dropped > 0 || len(changed) > 0 {
		s.logger.Info("history keys recomputed",
			zap.Bool("case_insensitive", s.opts.CaseInsensitive),
			zap.Int("rekeyed", len(changed)),
			zap.Int("dropped", dropped))
	}
	return nil
}

// Add inserts name unless its key already exists, then trims the table to MaxEntries.
func (s *SQLStore) Add(ctx context.Context, name string) (weather.HistoryEntry, error) {
	name = common.CleanName(name)
	if name == "" {
		return weather.HistoryEntry{}, ErrEmptyName
	}
	key := common.HistoryKey(name, s.opts.CaseInsensitive)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return weather.HistoryEntry{}, fmt.Errorf("begin history insert: %w", err)
	}
	defer tx.Rollback()

	insert := s.db.Rebind(`INSERT INTO search_history (id, name, name_key, created_at)
		VALUES (?, ?, ?, ?) ON CONFLICT (name_key) DO NOTHING`)
	if _, err := tx.ExecContext(ctx, insert, uuid.NewString(), name, key, s.now().UnixMilli()); err != nil {
		return weather.HistoryEntry{}, fmt.Errorf("insert history entry: %w", err)
	}

	var row historyRow
	query := s.db.Rebind(`SELECT seq, id, name, created_at FROM search_history WHERE name_key = ?`)
	if err := tx.GetContext(ctx, &row, query, key); err != nil {
		return weather.HistoryEntry{}, fmt.Errorf("read history entry: %w", err)
	}

	if s.opts.MaxEntries > 0 {
		trim := s.db.Rebind(`DELETE FROM search_history WHERE seq NOT IN (
			SELECT seq FROM search_history ORDER BY seq DESC LIMIT ?)`)
		res, err := tx.ExecContext(ctx, trim, s.opts.MaxEntries)
		if err != nil {
			return weather.HistoryEntry{}, fmt.Errorf("trim history: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			s.logger.Debug("evicted oldest history entries", zap.Int64("count", n))
		}
	}

	if err := tx.Commit(); err != nil {
		return weather.HistoryEntry{}, fmt.Errorf("commit history insert: %w", err)
	}
	return row.entry(), nil
}

// List returns the history in insertion order.
func (s *SQLStore) List(ctx context.Context) ([]weather.HistoryEntry, error) {
	var rows []historyRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT seq, id, name, created_at FROM search_history ORDER BY seq`); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	out := make([]weather.HistoryEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.entry())
	}
	return out, nil
}

// Remove deletes the entry with id. Unknown ids are ignored.
func (s *SQLStore) Remove(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM search_history WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("remove history entry: %w", err)
	}
	return nil
}

// Prune deletes entries created before cutoff.
func (s *SQLStore) Prune(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM search_history WHERE created_at < ?`), before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return int(n), nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
