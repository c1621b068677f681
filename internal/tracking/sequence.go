package tracking

import "sync/atomic"

// Sequence allocates monotonically increasing ping IDs for one ingestion
// run. IDs are never reused; a sequence seeded from the highest persisted ID
// continues the numbering of an existing database.
type Sequence struct {
	last atomic.Int64
}

// NewSequence returns a sequence whose first allocated ID is seed+1.
func NewSequence(seed int64) *Sequence {
	s := &Sequence{}
	s.last.Store(seed)
	return s
}

// Next returns the next ID. Safe for concurrent use.
func (s *Sequence) Next() int64 {
	return s.last.Add(1)
}

// Last returns the most recently allocated ID (or the seed if none).
func (s *Sequence) Last() int64 {
	return s.last.Load()
}
