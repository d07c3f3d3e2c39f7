package barstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"FallScope/internal/model"
)

// SQLiteStore keeps fetched bars in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	log    *zap.Logger
	maxAge time.Duration
	now    func() time.Time
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithMaxAge makes entries older than d miss. Zero keeps entries forever.
func WithMaxAge(d time.Duration) Option {
	return func(s *SQLiteStore) { s.maxAge = d }
}

// WithLogger sets the logger; the default discards.
func WithLogger(l *zap.Logger) Option {
	return func(s *SQLiteStore) { s.log = l }
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, log: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s.log.Info("bar cache opened", zap.String("path", dbPath))
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS fetches (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol     TEXT    NOT NULL,
			start_date TEXT    NOT NULL,
			end_date   TEXT    NOT NULL,
			fetched_at INTEGER NOT NULL,
			UNIQUE(symbol, start_date, end_date)
		)`,
		`CREATE TABLE IF NOT EXISTS bars (
			fetch_id INTEGER NOT NULL REFERENCES fetches(id) ON DELETE CASCADE,
			date     TEXT    NOT NULL,
			open     REAL,
			high     REAL,
			low      REAL,
			close    REAL,
			volume   REAL,
			PRIMARY KEY (fetch_id, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fetches_symbol ON fetches(symbol)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, bool, error) {
	var (
		id        int64
		fetchedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, fetched_at FROM fetches WHERE symbol = ? AND start_date = ? AND end_date = ?`,
		symbol, start.Format(model.DateLayout), end.Format(model.DateLayout),
	).Scan(&id, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup fetch %s: %w", symbol, err)
	}
	if s.maxAge > 0 && s.now().Sub(time.Unix(fetchedAt, 0)) > s.maxAge {
		return nil, false, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT date, open, high, low, close, volume FROM bars WHERE fetch_id = ? ORDER BY date`, id)
	if err != nil {
		return nil, false, fmt.Errorf("query bars %s: %w", symbol, err)
	}
	defer rows.Close()

	var bars []model.PriceBar
	for rows.Next() {
		var (
			date                           string
			open, high, low, close, volume sql.NullFloat64
		)
		if err := rows.Scan(&date, &open, &high, &low, &close, &volume); err != nil {
			return nil, false, fmt.Errorf("scan bar %s: %w", symbol, err)
		}
		d, err := time.Parse(model.DateLayout, date)
		if err != nil {
			return nil, false, fmt.Errorf("parse bar date %q: %w", date, err)
		}
		bars = append(bars, model.PriceBar{
			Date:   d,
			Open:   fromNull(open),
			High:   fromNull(high),
			Low:    fromNull(low),
			Close:  fromNull(close),
			Volume: fromNull(volume),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return bars, true, nil
}

// Save replaces any cached entry for the same key. Empty fetches are not
// cached so the next run asks the provider again.
func (s *SQLiteStore) Save(ctx context.Context, symbol string, start, end time.Time, bars []model.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	startKey, endKey := start.Format(model.DateLayout), end.Format(model.DateLayout)
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM bars WHERE fetch_id IN (SELECT id FROM fetches WHERE symbol = ? AND start_date = ? AND end_date = ?)`,
		symbol, startKey, endKey); err != nil {
		return fmt.Errorf("clear bars: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM fetches WHERE symbol = ? AND start_date = ? AND end_date = ?`,
		symbol, startKey, endKey); err != nil {
		return fmt.Errorf("clear fetch: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO fetches (symbol, start_date, end_date, fetched_at) VALUES (?,?,?,?)`,
		symbol, startKey, endKey, s.now().Unix())
	if err != nil {
		return fmt.Errorf("insert fetch: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO bars (fetch_id, date, open, high, low, close, volume) VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare bars: %w", err)
	}
	defer stmt.Close()
	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, id, b.Date.Format(model.DateLayout),
			toNull(b.Open), toNull(b.High), toNull(b.Low), toNull(b.Close), toNull(b.Volume)); err != nil {
			return fmt.Errorf("insert bar %s: %w", b.Date.Format(model.DateLayout), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.log.Debug("bars cached", zap.String("symbol", symbol), zap.Int("bars", len(bars)))
	return nil
}

func (s *SQLiteStore) Close() error {
	s.log.Info("closing bar cache")
	return s.db.Close()
}

// Missing prices are NaN in memory and NULL on disk.
func toNull(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
