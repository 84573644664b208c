// Package render throttles streamed content into display updates and decides when the view follows it.
package render

import (
	"strings"
	"sync"
	"time"
)

// DefaultInterval is the delay between a fragment and the display update that shows it.
const DefaultInterval = 66 * time.Millisecond

// Scheduler runs f once after d. The returned function cancels the call if it has not run.
type Scheduler func(d time.Duration, f func()) (stop func() bool)

func afterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithScheduler replaces the timer used to schedule flushes.
func WithScheduler(scheduler Scheduler) Option {
	return func(c *Coordinator) { c.schedule = scheduler }
}

// Coordinator accumulates fragments and hands snapshots of the running total to apply,
// at most once per interval. It keeps a single pending slot: a fragment arriving while a
// flush is scheduled only updates what that flush will show, so the deadline is never pushed back.
type Coordinator struct {
	interval time.Duration
	apply    func(content string)
	schedule Scheduler

	// Serializes calls to apply, so snapshots are applied in order.
	applyMu sync.Mutex

	mu      sync.Mutex
	content strings.Builder
	pending bool
	stop    func() bool
	closed  bool
}

// NewCoordinator returns a coordinator calling apply with the running total. A non-positive
// interval uses DefaultInterval. apply is called from a timer goroutine.
func NewCoordinator(interval time.Duration, apply func(content string), opts ...Option) *Coordinator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	c := &Coordinator{
		interval: interval,
		apply:    apply,
		schedule: afterFunc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Push appends fragment to the running total and schedules a flush if none is pending.
// Fragments pushed after Close are dropped.
func (c *Coordinator) Push(fragment string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.content.WriteString(fragment)
	if c.pending {
		return
	}
	c.pending = true
	c.stop = c.schedule(c.interval, c.flush)
}

func (c *Coordinator) flush() {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	c.mu.Lock()
	if c.closed || !c.pending {
		c.mu.Unlock()
		return
	}
	c.pending = false
	c.stop = nil
	snapshot := c.content.String()
	c.mu.Unlock()

	c.apply(snapshot)
}

// Content returns the running total.
func (c *Coordinator) Content() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content.String()
}

// Close cancels any pending flush and returns the final content. A flush that had already
// started may still deliver its snapshot; receivers drop snapshots after the terminal state.
func (c *Coordinator) Close() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		if c.pending && c.stop != nil {
			c.stop()
		}
		c.pending = false
		c.stop = nil
	}
	return c.content.String()
}
