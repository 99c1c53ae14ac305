package store

import "sync"

// Batch buffers the findings for one scanned file in memory using fake
// (negative) IDs, so scan workers can record matches without touching
// SQLite. CommitBatch writes a Batch in a single transaction.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
type Batch struct {
	mu sync.Mutex

	File     File
	Matches  []Match
	Captures []Capture

	nextFakeID int64 // starts at -1, decrements
}

// NewBatch creates a Batch for file. The file receives a fake ID; matches
// added to the batch reference it.
func NewBatch(file File) *Batch {
	b := &Batch{nextFakeID: -1}
	b.File = file
	b.File.ID = b.allocFakeID()
	return b
}

func (b *Batch) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

// AddMatch buffers m and its captures. m.ID, m.FileID and m.RunID are
// assigned from the batch; the captures are moved into the batch's
// capture list keyed by the match's fake ID.
func (b *Batch) AddMatch(m *Match) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	fakeID := b.allocFakeID()
	m.ID = fakeID
	m.FileID = b.File.ID
	m.RunID = b.File.RunID
	for _, c := range m.Captures {
		c.MatchID = fakeID
		b.Captures = append(b.Captures, c)
	}
	stored := *m
	stored.Captures = nil
	b.Matches = append(b.Matches, stored)
	return fakeID
}

// Len returns the number of buffered matches.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Matches)
}
