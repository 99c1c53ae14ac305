package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite findings database: scan runs, the files each run
// scanned, the matches found in them, and the captures of every match.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
  id              TEXT PRIMARY KEY,
  root            TEXT NOT NULL,
  started_at      TIMESTAMP NOT NULL,
  finished_at     TIMESTAMP,
  file_count      INTEGER DEFAULT 0,
  match_count     INTEGER DEFAULT 0,
  error_count     INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  run_id          TEXT NOT NULL REFERENCES runs(id),
  path            TEXT NOT NULL,
  language        TEXT NOT NULL,
  hash            TEXT NOT NULL,
  size            INTEGER,
  UNIQUE(run_id, path)
);

CREATE TABLE IF NOT EXISTS matches (
  id              INTEGER PRIMARY KEY,
  run_id          TEXT NOT NULL REFERENCES runs(id),
  file_id         INTEGER NOT NULL REFERENCES files(id),
  rule_id         TEXT NOT NULL,
  severity        TEXT,
  message         TEXT,
  kind            TEXT NOT NULL,
  start_byte      INTEGER,
  end_byte        INTEGER,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER,
  match_len       INTEGER,
  text            TEXT
);

CREATE TABLE IF NOT EXISTS captures (
  id              INTEGER PRIMARY KEY,
  match_id        INTEGER NOT NULL REFERENCES matches(id),
  name            TEXT NOT NULL,
  ordinal         INTEGER NOT NULL,
  is_multi        BOOLEAN DEFAULT FALSE,
  text            TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_files_run ON files(run_id);
CREATE INDEX IF NOT EXISTS idx_files_hash ON files(hash);
CREATE INDEX IF NOT EXISTS idx_matches_run ON matches(run_id);
CREATE INDEX IF NOT EXISTS idx_matches_file ON matches(file_id);
CREATE INDEX IF NOT EXISTS idx_matches_rule ON matches(rule_id);
CREATE INDEX IF NOT EXISTS idx_captures_match ON captures(match_id);
`

// DeleteRun transactionally removes a run and everything recorded for it.
// Deletes in reverse-dependency order to respect FK constraints.
func (s *Store) DeleteRun(runID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: delete run: begin: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM captures WHERE match_id IN (SELECT id FROM matches WHERE run_id = ?)",
		"DELETE FROM matches WHERE run_id = ?",
		"DELETE FROM files WHERE run_id = ?",
		"DELETE FROM runs WHERE id = ?",
	} {
		if _, err := tx.Exec(q, runID); err != nil {
			return fmt.Errorf("store: delete run %s: %w", runID, err)
		}
	}
	return tx.Commit()
}
