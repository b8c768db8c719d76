// Package history keeps a local sqlite ledger of training runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/medtext-cli/internal/utils"
)

// Run is one recorded training run.
type Run struct {
	ID           string
	StartedAt    time.Time
	Duration     time.Duration
	Dataset      string
	RowsTotal    int
	RowsUsed     int
	RowsExcluded int // empty text after normalization
	RowsDropped  int // removed by the label policy
	LabelPolicy  string
	Scoring      string
	Seed         uint64
	Family       string
	Params       string
	CVScore      float64
	TestAccuracy float64
	TestMacroF1  float64
	BundlePath   string
}

// timeLayout is fixed width so started_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is the run ledger.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger at path and migrates it.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("ensure history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// one writer; sqlite serializes anyway
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history: %w", err)
	}
	if _, err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Record inserts a run.
func (s *Store) Record(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, duration_ms, dataset, rows_total, rows_used, rows_excluded,
			rows_dropped, label_policy, scoring, seed, family, params, cv_score, test_accuracy,
			test_macro_f1, bundle_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UTC().Format(timeLayout), r.Duration.Milliseconds(), r.Dataset,
		r.RowsTotal, r.RowsUsed, r.RowsExcluded, r.RowsDropped, r.LabelPolicy, r.Scoring,
		int64(r.Seed), r.Family, r.Params, r.CVScore, r.TestAccuracy, r.TestMacroF1, r.BundlePath)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// List returns the most recent runs first; limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, duration_ms, dataset, rows_total, rows_used, rows_excluded,
			rows_dropped, label_policy, scoring, seed, family, params, cv_score, test_accuracy,
			test_macro_f1, bundle_path
		FROM runs
		ORDER BY started_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started string
		var durMs, seed int64
		if err := rows.Scan(&r.ID, &started, &durMs, &r.Dataset, &r.RowsTotal, &r.RowsUsed, &r.RowsExcluded,
			&r.RowsDropped, &r.LabelPolicy, &r.Scoring, &seed, &r.Family, &r.Params, &r.CVScore,
			&r.TestAccuracy, &r.TestMacroF1, &r.BundlePath); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.StartedAt, err = parseStarted(started); err != nil {
			return nil, fmt.Errorf("run %s: bad started_at %q: %w", r.ID, started, err)
		}
		r.Duration = time.Duration(durMs) * time.Millisecond
		r.Seed = uint64(seed)
		out = append(out, r)
	}
	return out, rows.Err()
}

// parseStarted also accepts RFC3339Nano rows written before the fixed layout.
func parseStarted(v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, v)
}
