package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const runColumns = `id, root, started_at, finished_at, file_count, match_count, error_count`

// BeginRun records the start of a scan rooted at root and returns the run
// with a fresh ID.
func (s *Store) BeginRun(root string) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Root:      root,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (id, root, started_at) VALUES (?, ?, ?)`,
		run.ID, run.Root, run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	return run, nil
}

// FinishRun stamps the run's finish time and stores its counters.
func (s *Store) FinishRun(run *Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	res, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, file_count = ?, match_count = ?, error_count = ? WHERE id = ?`,
		run.FinishedAt, run.FileCount, run.MatchCount, run.ErrorCount, run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run: unknown run %s", run.ID)
	}
	return nil
}

// RunByID returns the run with the given ID, or nil if not found.
func (s *Store) RunByID(id string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("run by id: %w", err)
	}
	return run, nil
}

// LatestRun returns the most recently started run, or nil if the store is
// empty.
func (s *Store) LatestRun() (*Run, error) {
	row := s.db.QueryRow(`SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// Runs returns all runs, newest first.
func (s *Store) Runs() ([]*Run, error) {
	rows, err := s.db.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("runs: %w", err)
	}
	defer rows.Close()

	var result []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("runs: scan: %w", err)
		}
		result = append(result, run)
	}
	return result, rows.Err()
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var finished sql.NullTime
	if err := row.Scan(&run.ID, &run.Root, &run.StartedAt, &finished,
		&run.FileCount, &run.MatchCount, &run.ErrorCount); err != nil {
		return nil, err
	}
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	return &run, nil
}
