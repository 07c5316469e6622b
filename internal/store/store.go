// Package store keeps a SQLite history of usage snapshots.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// sqlite driver
	_ "modernc.org/sqlite"

	"github.com/yuxishi/aiusage/internal/model"
)

// Store wraps the SQLite connection holding usage_snapshots.
type Store struct {
	db   *sql.DB
	path string
}

// Snapshot is one stored window of one provider at one poll.
type Snapshot struct {
	ID          int64
	CapturedAt  time.Time
	Provider    string
	Service     string
	PlanType    string
	Window      string
	Utilization float64
	ResetsAt    *time.Time
	Period      time.Duration
}

// Open creates the database file (and its directory) if needed and
// initializes the schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := sqlDB.PingContext(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: sqlDB, path: path}
	if err := s.configure(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	if err := s.createSchema(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) createSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS usage_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		captured_at INTEGER NOT NULL,
		provider TEXT NOT NULL,
		service TEXT NOT NULL,
		plan_type TEXT NOT NULL DEFAULT '',
		window_name TEXT NOT NULL,
		utilization REAL NOT NULL,
		resets_at INTEGER,
		period_ms INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_usage_snapshots_captured ON usage_snapshots(captured_at);
	CREATE INDEX IF NOT EXISTS idx_usage_snapshots_provider ON usage_snapshots(provider, captured_at);
	`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

// InsertSnapshot stores every window of the successful results under one
// capture time and returns the number of rows written.
func (s *Store) InsertSnapshot(ctx context.Context, capturedAt time.Time, results []model.Result) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO usage_snapshots (
			captured_at, provider, service, plan_type, window_name,
			utilization, resets_at, period_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare snapshot insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	captured := capturedAt.UTC().UnixMilli()
	n := 0
	for _, r := range results {
		if !r.OK() {
			continue
		}
		for _, w := range r.Usage.Windows {
			var resets sql.NullInt64
			if w.ResetsAt != nil {
				resets = sql.NullInt64{Int64: w.ResetsAt.UnixMilli(), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx,
				captured,
				r.Provider,
				r.Usage.Service,
				r.Usage.PlanType,
				w.Name,
				w.Utilization,
				resets,
				w.PeriodDuration.Milliseconds(),
			); err != nil {
				return 0, fmt.Errorf("failed to insert snapshot for %s: %w", r.Provider, err)
			}
			n++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return n, nil
}

const snapshotColumns = `id, captured_at, provider, service, plan_type, window_name, utilization, resets_at, period_ms`

// LatestSnapshots returns, per provider, the windows of its most recent
// capture in insertion order.
func (s *Store) LatestSnapshots(ctx context.Context) ([]Snapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM usage_snapshots s
		WHERE captured_at = (
			SELECT MAX(captured_at) FROM usage_snapshots WHERE provider = s.provider
		)
		ORDER BY provider, id
	`
	return s.query(ctx, query)
}

// History returns the stored windows of provider captured at or after since,
// oldest first.
func (s *Store) History(ctx context.Context, provider string, since time.Time) ([]Snapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM usage_snapshots
		WHERE provider = ? AND captured_at >= ?
		ORDER BY captured_at, id
	`
	return s.query(ctx, query, provider, since.UTC().UnixMilli())
}

// Prune deletes snapshots captured before the cutoff.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM usage_snapshots WHERE captured_at < ?", before.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Snapshot
	for rows.Next() {
		var (
			snap     Snapshot
			captured int64
			resets   sql.NullInt64
			periodMs int64
		)
		if err := rows.Scan(
			&snap.ID,
			&captured,
			&snap.Provider,
			&snap.Service,
			&snap.PlanType,
			&snap.Window,
			&snap.Utilization,
			&resets,
			&periodMs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snap.CapturedAt = time.UnixMilli(captured).UTC()
		if resets.Valid {
			t := time.UnixMilli(resets.Int64).UTC()
			snap.ResetsAt = &t
		}
		snap.Period = time.Duration(periodMs) * time.Millisecond
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Close checkpoints the WAL and closes the connection.
func (s *Store) Close() error {
	_, _ = s.db.ExecContext(context.Background(), "PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}
