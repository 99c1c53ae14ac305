package store

import (
	"database/sql"
	"fmt"
)

// CommitBatch inserts all buffered data from a Batch into SQLite within a
// single transaction. Fake (negative) IDs are remapped to real
// (AUTOINCREMENT) IDs, and the FK references within the batch are rewritten
// using the fakeToReal mapping.
//
// Insert order respects FK dependencies:
//  1. File (depends on run_id, which is already real)
//  2. Matches (depend on file_id)
//  3. Captures (depend on match_id)
func (s *Store) CommitBatch(batch *Batch) error {
	batch.mu.Lock()
	defer batch.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	fakeToReal := make(map[int64]int64)

	// 1. File
	fileID, err := insertFileTx(tx, &batch.File)
	if err != nil {
		return fmt.Errorf("commit batch: file %q: %w", batch.File.Path, err)
	}
	fakeToReal[batch.File.ID] = fileID

	// 2. Matches
	for _, m := range batch.Matches {
		if m.FileID < 0 {
			m.FileID = fakeToReal[m.FileID]
		}
		realID, err := insertMatchTx(tx, &m)
		if err != nil {
			return fmt.Errorf("commit batch: match %s at %d: %w", m.RuleID, m.StartByte, err)
		}
		fakeToReal[m.ID] = realID
	}

	// 3. Captures
	for _, c := range batch.Captures {
		if c.MatchID < 0 {
			c.MatchID = fakeToReal[c.MatchID]
		}
		if _, err := insertCaptureTx(tx, &c); err != nil {
			return fmt.Errorf("commit batch: capture %s: %w", c.Name, err)
		}
	}

	return tx.Commit()
}

func insertFileTx(tx *sql.Tx, f *File) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO files (run_id, path, language, hash, size) VALUES (?, ?, ?, ?, ?)`,
		f.RunID, f.Path, f.Language, f.Hash, f.Size,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertMatchTx(tx *sql.Tx, m *Match) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO matches (run_id, file_id, rule_id, severity, message, kind,
		  start_byte, end_byte, start_line, start_col, end_line, end_col, match_len, text)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.RunID, m.FileID, m.RuleID, m.Severity, m.Message, m.Kind,
		m.StartByte, m.EndByte, m.StartLine, m.StartCol, m.EndLine, m.EndCol, m.MatchLen, m.Text,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertCaptureTx(tx *sql.Tx, c *Capture) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO captures (match_id, name, ordinal, is_multi, text) VALUES (?, ?, ?, ?, ?)`,
		c.MatchID, c.Name, c.Ordinal, c.Multi, c.Text,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
