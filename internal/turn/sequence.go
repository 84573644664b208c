package turn

import "sync/atomic"

// ID identifies a turn. Zero is never issued.
type ID uint64

// Sequence issues monotonically increasing turn IDs.
type Sequence struct {
	last atomic.Uint64
}

// Next issues a new ID, making it the current one.
func (s *Sequence) Next() ID {
	return ID(s.last.Add(1))
}

// Current returns the last issued ID, zero if none.
func (s *Sequence) Current() ID {
	return ID(s.last.Load())
}

// IsCurrent returns true if id is the last issued ID.
func (s *Sequence) IsCurrent(id ID) bool {
	return id != 0 && id == s.Current()
}
