package stream

import (
	"fmt"
	"strings"

	"github.com/malonaz/ragchat/internal/apierr"
)

const (
	// Delimiter separates two events.
	Delimiter = "\n\n"
	// DefaultMaxEventSize bounds the unterminated remainder a Framer buffers.
	DefaultMaxEventSize = 1 << 20
)

// Framer reassembles decoded text into delimiter-bounded events.
type Framer struct {
	buffer       string
	maxEventSize int
}

// NewFramer returns a framer. A maxEventSize <= 0 disables the bound.
func NewFramer(maxEventSize int) *Framer {
	return &Framer{maxEventSize: maxEventSize}
}

// Push appends text and returns every event completed by it, in order.
// The trailing unterminated part is retained until a later Push or Flush.
// When that part outgrows the bound, it is dropped and an error is returned
// alongside the events completed before it.
func (f *Framer) Push(text string) ([]string, error) {
	f.buffer += text
	parts := strings.Split(f.buffer, Delimiter)
	f.buffer = parts[len(parts)-1]
	events := parts[:len(parts)-1]
	if f.maxEventSize > 0 && len(f.buffer) > f.maxEventSize {
		size := len(f.buffer)
		f.buffer = ""
		return events, &apierr.ProtocolError{Message: fmt.Sprintf("event exceeds %d bytes (%d buffered)", f.maxEventSize, size)}
	}
	return events, nil
}

// Flush returns the retained remainder as a final event, if it is non-empty.
// The remainder is assumed complete: producers close the stream right after their last event.
func (f *Framer) Flush() (string, bool) {
	remainder := f.buffer
	f.buffer = ""
	return remainder, remainder != ""
}

// Buffered returns the size of the retained remainder.
func (f *Framer) Buffered() int { return len(f.buffer) }
