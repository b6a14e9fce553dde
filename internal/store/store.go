// Package store keeps a SQLite log of planned runs so bit wear can be
// tracked across jobs.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/piwi3910/pcbdrill/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for the wear log.
type Store struct {
	db *sql.DB
}

// WearTotal is the cumulative use of one bit over all recorded runs.
type WearTotal struct {
	Bit      model.Bit
	Runs     int
	Hits     int
	Routed   float64 // micrometres
	LastUsed time.Time
}

// Run is one recorded plan.
type Run struct {
	ID        string
	Board     string
	CreatedAt time.Time
	Tools     int
	Hits      int
	Travel    float64
	Warnings  int
}

// DefaultPath returns ~/.pcbdrill/wear.db.
func DefaultPath() string {
	return filepath.Join(model.DefaultConfigDir(), "wear.db")
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create wear log directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wear log: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, fmt.Errorf("failed to migrate wear log: %w", err)
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			board TEXT NOT NULL,
			created_at TEXT NOT NULL,
			what INTEGER NOT NULL,
			rack_capacity INTEGER NOT NULL,
			tools INTEGER NOT NULL,
			hits INTEGER NOT NULL,
			travel_um REAL NOT NULL,
			warnings INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS run_bits (
			run_id TEXT NOT NULL REFERENCES runs(id),
			diameter_um INTEGER NOT NULL,
			kind INTEGER NOT NULL,
			slot INTEGER NOT NULL,
			hits INTEGER NOT NULL,
			routed_um REAL NOT NULL,
			PRIMARY KEY (run_id, diameter_um, kind)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_run_bits_bit ON run_bits(diameter_um, kind);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordPlan stores a plan and the use of each of its bits. Recording the
// same plan twice is an error.
func (s *Store) RecordPlan(ctx context.Context, plan model.Plan) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, board, created_at, what, rack_capacity, tools, hits, travel_um, warnings)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID,
		plan.Board,
		plan.CreatedAt.Format(time.RFC3339Nano),
		int(plan.What),
		plan.RackCapacity,
		plan.ToolChanges(),
		plan.Assignment.TotalHits(),
		plan.Travel,
		len(plan.Warnings),
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", plan.ID, err)
	}

	if len(plan.Assignment.Tools) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO run_bits (run_id, diameter_um, kind, slot, hits, routed_um)
			 VALUES (?, ?, ?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, tp := range plan.Assignment.Tools {
			if _, err = stmt.ExecContext(ctx, plan.ID, tp.Bit.Diameter, int(tp.Bit.Kind), tp.Slot, tp.Hits(), tp.RouteLength()); err != nil {
				return fmt.Errorf("failed to record bit %s: %w", tp.Bit, err)
			}
		}
	}

	err = tx.Commit()
	return err
}

// BitWear returns cumulative totals per bit, drills first, then by diameter.
func (s *Store) BitWear(ctx context.Context) ([]WearTotal, error) {
	query := `SELECT b.diameter_um, b.kind, COUNT(*) AS runs, SUM(b.hits), SUM(b.routed_um), MAX(r.created_at)
	FROM run_bits b
	JOIN runs r ON r.id = b.run_id
	GROUP BY b.diameter_um, b.kind
	ORDER BY b.kind, b.diameter_um`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []WearTotal
	for rows.Next() {
		var (
			w    WearTotal
			kind int
			last string
		)
		if err := rows.Scan(&w.Bit.Diameter, &kind, &w.Runs, &w.Hits, &w.Routed, &last); err != nil {
			return nil, err
		}
		w.Bit.Kind = model.BitKind(kind)
		if t, err := time.Parse(time.RFC3339Nano, last); err == nil {
			w.LastUsed = t
		}
		result = append(result, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, board, created_at, tools, hits, travel_um, warnings FROM runs ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []Run
	for rows.Next() {
		var (
			r       Run
			created string
		)
		if err := rows.Scan(&r.ID, &r.Board, &created, &r.Tools, &r.Hits, &r.Travel, &r.Warnings); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			r.CreatedAt = t
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
