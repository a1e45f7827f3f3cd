// Package history keeps the per-bar return series walk-forward runs replay,
// one SQLite file per symbol and timeframe.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/husnusametd/spectra/internal/walkforward"

	_ "modernc.org/sqlite"
)

// ErrNoHistory means nothing has been recorded for a symbol and timeframe.
var ErrNoHistory = errors.New("history: no rows recorded")

// Manifest summarises one symbol@timeframe file.
type Manifest struct {
	Symbol     string `json:"symbol"`
	Timeframe  string `json:"timeframe"`
	MinTime    int64  `json:"min_time"`
	MaxTime    int64  `json:"max_time"`
	Rows       int64  `json:"rows"`
	LastSyncAt int64  `json:"last_sync_at"`
	Path       string `json:"path"`
}

type Store struct {
	root string

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

func NewStore(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("history root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root, dbs: make(map[string]*sql.DB)}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for k, db := range s.dbs {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.dbs, k)
	}
	return firstErr
}

func (s *Store) path(symbol, timeframe string) string {
	return filepath.Join(s.root, strings.ToUpper(symbol), strings.ToLower(timeframe)+".db")
}

func (s *Store) db(symbol, timeframe string) (*sql.DB, string, error) {
	if strings.TrimSpace(symbol) == "" || strings.TrimSpace(timeframe) == "" {
		return nil, "", fmt.Errorf("history: symbol and timeframe are required")
	}
	key := strings.ToUpper(symbol) + "@" + strings.ToLower(timeframe)
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.path(symbol, timeframe)
	if db, ok := s.dbs[key]; ok {
		return db, path, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, "", err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, "", err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureSchema(db, symbol, timeframe); err != nil {
		_ = db.Close()
		return nil, "", err
	}
	s.dbs[key] = db
	return db, path, nil
}

// Insert upserts points keyed by timestamp (millisecond precision).
func (s *Store) Insert(ctx context.Context, symbol, timeframe string, points []walkforward.Point) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}
	db, _, err := s.db(symbol, timeframe)
	if err != nil {
		return 0, err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO returns (ts, signal_return, features)
		VALUES (?, ?, ?)
		ON CONFLICT(ts) DO UPDATE SET
		    signal_return=excluded.signal_return,
		    features=excluded.features`)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()
	count := 0
	for _, p := range points {
		var features any
		if len(p.Features) > 0 {
			raw, err := json.Marshal(p.Features)
			if err != nil {
				_ = tx.Rollback()
				return 0, fmt.Errorf("encode features at %s: %w", p.Time.Format(time.RFC3339), err)
			}
			features = string(raw)
		}
		if _, err := stmt.ExecContext(ctx, p.Time.UnixMilli(), p.Return, features); err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		count++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	if err := refreshManifest(ctx, db); err != nil {
		return count, err
	}
	return count, nil
}

// Load returns every recorded point in time order.
func (s *Store) Load(ctx context.Context, symbol, timeframe string) ([]walkforward.Point, error) {
	if _, err := os.Stat(s.path(symbol, timeframe)); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s %s", ErrNoHistory, strings.ToUpper(symbol), timeframe)
	}
	db, _, err := s.db(symbol, timeframe)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT ts, signal_return, features FROM returns ORDER BY ts ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []walkforward.Point
	for rows.Next() {
		var (
			ts       int64
			ret      float64
			features sql.NullString
		)
		if err := rows.Scan(&ts, &ret, &features); err != nil {
			return nil, err
		}
		p := walkforward.Point{Time: time.UnixMilli(ts).UTC(), Return: ret}
		if features.Valid && features.String != "" {
			if err := json.Unmarshal([]byte(features.String), &p.Features); err != nil {
				return nil, fmt.Errorf("decode features at %d: %w", ts, err)
			}
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrNoHistory, strings.ToUpper(symbol), timeframe)
	}
	return out, nil
}

func (s *Store) Manifest(ctx context.Context, symbol, timeframe string) (Manifest, error) {
	db, path, err := s.db(symbol, timeframe)
	if err != nil {
		return Manifest{}, err
	}
	row := db.QueryRowContext(ctx, `SELECT symbol, timeframe, min_time, max_time, rows, last_sync_at FROM manifest WHERE id=1`)
	var m Manifest
	if err := row.Scan(&m.Symbol, &m.Timeframe, &m.MinTime, &m.MaxTime, &m.Rows, &m.LastSyncAt); err != nil {
		return Manifest{}, err
	}
	m.Path = path
	return m, nil
}

func refreshManifest(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		UPDATE manifest
		SET min_time = (SELECT COALESCE(MIN(ts), 0) FROM returns),
		    max_time = (SELECT COALESCE(MAX(ts), 0) FROM returns),
		    rows = (SELECT COUNT(1) FROM returns),
		    last_sync_at = ?
		WHERE id = 1`, time.Now().UnixMilli())
	return err
}

func ensureSchema(db *sql.DB, symbol, timeframe string) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS returns (
			ts            INTEGER PRIMARY KEY,
			signal_return REAL NOT NULL,
			features      TEXT,
			inserted_at   INTEGER NOT NULL DEFAULT (strftime('%s','now') * 1000)
		);`,
		`CREATE TABLE IF NOT EXISTS manifest (
			id INTEGER PRIMARY KEY CHECK (id=1),
			symbol TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			min_time INTEGER NOT NULL DEFAULT 0,
			max_time INTEGER NOT NULL DEFAULT 0,
			rows INTEGER NOT NULL DEFAULT 0,
			last_sync_at INTEGER NOT NULL DEFAULT 0
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	_, err := db.Exec(`INSERT INTO manifest (id, symbol, timeframe) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET symbol=excluded.symbol, timeframe=excluded.timeframe;`,
		strings.ToUpper(symbol), strings.ToLower(timeframe))
	return err
}
