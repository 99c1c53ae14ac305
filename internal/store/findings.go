package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// MatchFilter narrows MatchesByRun. Zero fields match everything.
type MatchFilter struct {
	RuleID   string
	Path     string
	Severity string
}

// FilesByRun returns the files scanned by a run, ordered by path.
func (s *Store) FilesByRun(runID string) ([]*File, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, path, language, hash, size FROM files WHERE run_id = ? ORDER BY path`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("files by run: %w", err)
	}
	defer rows.Close()

	var result []*File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.RunID, &f.Path, &f.Language, &f.Hash, &f.Size); err != nil {
			return nil, fmt.Errorf("files by run: scan: %w", err)
		}
		result = append(result, &f)
	}
	return result, rows.Err()
}

// MatchesByRun returns the matches recorded for a run, with their captures
// loaded, ordered by path and then start offset.
func (s *Store) MatchesByRun(runID string, filter MatchFilter) ([]*Match, error) {
	var where []string
	args := []any{runID}
	where = append(where, "m.run_id = ?")
	if filter.RuleID != "" {
		where = append(where, "m.rule_id = ?")
		args = append(args, filter.RuleID)
	}
	if filter.Path != "" {
		where = append(where, "f.path = ?")
		args = append(args, filter.Path)
	}
	if filter.Severity != "" {
		where = append(where, "m.severity = ?")
		args = append(args, filter.Severity)
	}

	rows, err := s.db.Query(
		`SELECT m.id, m.run_id, m.file_id, f.path, f.language, m.rule_id, m.severity, m.message, m.kind,
		  m.start_byte, m.end_byte, m.start_line, m.start_col, m.end_line, m.end_col, m.match_len, m.text
		 FROM matches m JOIN files f ON f.id = m.file_id
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY f.path, m.start_byte, m.id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("matches by run: %w", err)
	}
	defer rows.Close()

	var result []*Match
	byID := make(map[int64]*Match)
	var ids []int64
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.RunID, &m.FileID, &m.Path, &m.Language, &m.RuleID, &m.Severity, &m.Message, &m.Kind,
			&m.StartByte, &m.EndByte, &m.StartLine, &m.StartCol, &m.EndLine, &m.EndCol, &m.MatchLen, &m.Text); err != nil {
			return nil, fmt.Errorf("matches by run: scan: %w", err)
		}
		result = append(result, &m)
		byID[m.ID] = &m
		ids = append(ids, m.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.loadCaptures(ids, byID); err != nil {
		return nil, err
	}
	return result, nil
}

// captureChunk bounds the number of placeholders per IN clause.
const captureChunk = 500

func (s *Store) loadCaptures(ids []int64, byID map[int64]*Match) error {
	for start := 0; start < len(ids); start += captureChunk {
		end := min(start+captureChunk, len(ids))
		chunk := ids[start:end]
		rows, err := s.db.Query(
			`SELECT id, match_id, name, ordinal, is_multi, text FROM captures
			 WHERE match_id IN (`+placeholderList(len(chunk))+`)
			 ORDER BY match_id, is_multi, name, ordinal`,
			int64sToArgs(chunk)...,
		)
		if err != nil {
			return fmt.Errorf("load captures: %w", err)
		}
		for rows.Next() {
			var c Capture
			if err := rows.Scan(&c.ID, &c.MatchID, &c.Name, &c.Ordinal, &c.Multi, &c.Text); err != nil {
				rows.Close()
				return fmt.Errorf("load captures: scan: %w", err)
			}
			if m := byID[c.MatchID]; m != nil {
				m.Captures = append(m.Captures, c)
			}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("load captures: %w", err)
		}
	}
	return nil
}

// RuleCount is the number of matches a rule produced in a run.
type RuleCount struct {
	RuleID string
	Count  int
}

// CountsByRule returns per-rule match counts for a run, highest first.
func (s *Store) CountsByRule(runID string) ([]RuleCount, error) {
	rows, err := s.db.Query(
		`SELECT rule_id, COUNT(*) AS n FROM matches WHERE run_id = ?
		 GROUP BY rule_id ORDER BY n DESC, rule_id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("counts by rule: %w", err)
	}
	defer rows.Close()

	var result []RuleCount
	for rows.Next() {
		var rc RuleCount
		if err := rows.Scan(&rc.RuleID, &rc.Count); err != nil {
			return nil, fmt.Errorf("counts by rule: scan: %w", err)
		}
		result = append(result, rc)
	}
	return result, rows.Err()
}

// PreviousHash returns the hash recorded for path by the most recent run
// other than excludeRunID, or "" when the path was never scanned.
func (s *Store) PreviousHash(path, excludeRunID string) (string, error) {
	var hash string
	err := s.db.QueryRow(
		`SELECT f.hash FROM files f JOIN runs r ON r.id = f.run_id
		 WHERE f.path = ? AND f.run_id != ?
		 ORDER BY r.started_at DESC, r.rowid DESC LIMIT 1`,
		path, excludeRunID,
	).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("previous hash: %w", err)
	}
	return hash, nil
}
