package render

import "time"

// Defaults of the auto-scroll policy.
const (
	DefaultNearBottomLines   = 3
	DefaultScrollResumeDelay = time.Second
)

// ScrollTracker decides whether new content should pull the view to the bottom.
// Scrolling away from the bottom suspends auto-scroll. It resumes once the view is back
// within the threshold and the resume delay has passed since the last away-scroll.
type ScrollTracker struct {
	threshold   int
	resumeDelay time.Duration
	now         func() time.Time

	suspended  bool
	lastAwayAt time.Time
}

// NewScrollTracker returns a tracker. Non-positive arguments use the defaults.
func NewScrollTracker(threshold int, resumeDelay time.Duration) *ScrollTracker {
	if threshold <= 0 {
		threshold = DefaultNearBottomLines
	}
	if resumeDelay <= 0 {
		resumeDelay = DefaultScrollResumeDelay
	}
	return &ScrollTracker{
		threshold:   threshold,
		resumeDelay: resumeDelay,
		now:         time.Now,
	}
}

// NearBottom returns true if distanceFromBottom is within the threshold.
func (s *ScrollTracker) NearBottom(distanceFromBottom int) bool {
	return distanceFromBottom <= s.threshold
}

// Observe records a user scroll that left the view distanceFromBottom lines above the bottom.
func (s *ScrollTracker) Observe(distanceFromBottom int) {
	if !s.NearBottom(distanceFromBottom) {
		s.suspended = true
		s.lastAwayAt = s.now()
	}
}

// ShouldAutoScroll is asked when content grows. It returns true if the view should follow.
func (s *ScrollTracker) ShouldAutoScroll(distanceFromBottom int) bool {
	if !s.suspended {
		return true
	}
	if s.NearBottom(distanceFromBottom) && s.now().Sub(s.lastAwayAt) >= s.resumeDelay {
		s.suspended = false
		return true
	}
	return false
}

// ForceOnComplete clears any suspension. The caller scrolls to the bottom once.
func (s *ScrollTracker) ForceOnComplete() {
	s.suspended = false
}

// Suspended returns true while auto-scroll is suspended.
func (s *ScrollTracker) Suspended() bool { return s.suspended }
