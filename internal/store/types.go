package store

import "time"

// Run is one scan.
type Run struct {
	ID         string
	Root       string
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is in progress
	FileCount  int
	MatchCount int
	ErrorCount int
}

// File is a file scanned by a run.
type File struct {
	ID       int64
	RunID    string
	Path     string
	Language string
	Hash     string
	Size     int
}

// Match is one finding. Lines and columns are 1-based.
type Match struct {
	ID        int64
	RunID     string
	FileID    int64
	Path      string // filled by queries from the file row
	Language  string // filled by queries from the file row
	RuleID    string
	Severity  string
	Message   string
	Kind      string
	StartByte int
	EndByte   int
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
	MatchLen  int
	Text      string
	Captures  []Capture
}

// Capture is one captured node of a match. Variadic captures produce one
// row per node, ordered by Ordinal.
type Capture struct {
	ID      int64
	MatchID int64
	Name    string
	Ordinal int
	Multi   bool
	Text    string
}
