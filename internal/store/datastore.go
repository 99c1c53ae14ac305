package store

// DataStore is the write side the scan engine needs. Store implements it
// directly; tests and callers may substitute their own sink.
type DataStore interface {
	BeginRun(root string) (*Run, error)
	CommitBatch(b *Batch) error
	FinishRun(run *Run) error
	PreviousHash(path, excludeRunID string) (string, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
