// Package turn models a single question/answer exchange:
//
//	IDLE -> SESSION_ENSURE (no active session) -> STREAMING -> COMPLETE | FAILED
//
// A turn whose session cannot be created goes back to IDLE without ever streaming.
package turn

import (
	"errors"
	"fmt"

	"github.com/malonaz/ragchat/internal/apierr"
)

// FailureFallback is displayed when a turn fails with neither content nor an error message.
const FailureFallback = "回答失败，请重试"

// ErrInvalidTransition is returned when a turn is moved out of order.
var ErrInvalidTransition = errors.New("invalid turn transition")

// Phase of a turn.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSessionEnsure
	PhaseStreaming
	PhaseComplete
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseSessionEnsure:
		return "SESSION_ENSURE"
	case PhaseStreaming:
		return "STREAMING"
	case PhaseComplete:
		return "COMPLETE"
	case PhaseFailed:
		return "FAILED"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Terminal returns true for COMPLETE and FAILED.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseFailed
}

// Turn is one question and its answer.
type Turn struct {
	ID        ID
	Question  string
	SessionID int64
	Phase     Phase
	// Content is the assistant content received so far. It never shrinks.
	Content string
	// Err is set when the turn failed or was aborted.
	Err error
}

// New returns an idle turn. A zero sessionID means a session must be created first.
func New(id ID, question string, sessionID int64) *Turn {
	return &Turn{ID: id, Question: question, SessionID: sessionID}
}

func (t *Turn) transition(from, to Phase) error {
	if t.Phase != from {
		return fmt.Errorf("%w: turn %d is %s, cannot move to %s", ErrInvalidTransition, t.ID, t.Phase, to)
	}
	t.Phase = to
	return nil
}

// Begin starts the turn: SESSION_ENSURE if it has no session yet, STREAMING otherwise.
func (t *Turn) Begin() error {
	if t.SessionID == 0 {
		return t.transition(PhaseIdle, PhaseSessionEnsure)
	}
	return t.transition(PhaseIdle, PhaseStreaming)
}

// SessionEnsured records the created session and moves to STREAMING.
func (t *Turn) SessionEnsured(sessionID int64) error {
	if err := t.transition(PhaseSessionEnsure, PhaseStreaming); err != nil {
		return err
	}
	t.SessionID = sessionID
	return nil
}

// Abort returns a turn whose session could not be created to IDLE.
func (t *Turn) Abort(err error) error {
	if err := t.transition(PhaseSessionEnsure, PhaseIdle); err != nil {
		return err
	}
	t.Err = err
	return nil
}

// Update records streamed content. It returns false, leaving the turn untouched, if the turn is
// not streaming or if content is shorter than what was already recorded.
func (t *Turn) Update(content string) bool {
	if t.Phase != PhaseStreaming || len(content) < len(t.Content) {
		return false
	}
	t.Content = content
	return true
}

// Complete finalizes the turn with its full content.
func (t *Turn) Complete(content string) error {
	if err := t.transition(PhaseStreaming, PhaseComplete); err != nil {
		return err
	}
	if len(content) > len(t.Content) {
		t.Content = content
	}
	return nil
}

// Fail finalizes the turn with the content received before err.
func (t *Turn) Fail(content string, err error) error {
	if err := t.transition(PhaseStreaming, PhaseFailed); err != nil {
		return err
	}
	if len(content) > len(t.Content) {
		t.Content = content
	}
	t.Err = err
	return nil
}

// DisplayContent returns the text the assistant message shows.
func (t *Turn) DisplayContent() string {
	if t.Phase == PhaseFailed {
		return FailureText(t.Content, t.Err)
	}
	return t.Content
}

// FailureText returns the partial content if any, else the error message, else FailureFallback.
func FailureText(partial string, err error) string {
	if partial != "" {
		return partial
	}
	if message := apierr.Message(err); message != "" {
		return message
	}
	return FailureFallback
}
