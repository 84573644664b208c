package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTracker() (*ScrollTracker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	tracker := NewScrollTracker(3, time.Second)
	tracker.now = clock.now
	return tracker, clock
}

func TestScrollTrackerFollowsByDefault(t *testing.T) {
	tracker, _ := newTestTracker()
	assert.True(t, tracker.ShouldAutoScroll(0))
	tracker.Observe(2)
	assert.False(t, tracker.Suspended())
	assert.True(t, tracker.ShouldAutoScroll(2))
}

func TestScrollTrackerSuspension(t *testing.T) {
	tracker, clock := newTestTracker()

	tracker.Observe(10)
	assert.True(t, tracker.Suspended())
	assert.False(t, tracker.ShouldAutoScroll(10))

	// Back near the bottom but within the resume delay.
	clock.advance(500 * time.Millisecond)
	tracker.Observe(1)
	assert.False(t, tracker.ShouldAutoScroll(1))

	// Still away after the delay.
	clock.advance(time.Second)
	assert.False(t, tracker.ShouldAutoScroll(8))

	assert.True(t, tracker.ShouldAutoScroll(0))
	assert.False(t, tracker.Suspended())
}

func TestScrollTrackerAwayScrollRestartsDelay(t *testing.T) {
	tracker, clock := newTestTracker()
	tracker.Observe(10)
	clock.advance(900 * time.Millisecond)
	tracker.Observe(20)
	clock.advance(900 * time.Millisecond)
	assert.False(t, tracker.ShouldAutoScroll(0))
	clock.advance(100 * time.Millisecond)
	assert.True(t, tracker.ShouldAutoScroll(0))
}

func TestScrollTrackerForceOnComplete(t *testing.T) {
	tracker, _ := newTestTracker()
	tracker.Observe(50)
	assert.False(t, tracker.ShouldAutoScroll(50))
	tracker.ForceOnComplete()
	assert.False(t, tracker.Suspended())
	assert.True(t, tracker.ShouldAutoScroll(50))
}

func TestScrollTrackerDefaults(t *testing.T) {
	tracker := NewScrollTracker(0, 0)
	assert.True(t, tracker.NearBottom(DefaultNearBottomLines))
	assert.False(t, tracker.NearBottom(DefaultNearBottomLines+1))
	assert.Equal(t, DefaultScrollResumeDelay, tracker.resumeDelay)
}
