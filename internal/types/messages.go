package types

import (
	"github.com/malonaz/ragchat/internal/rag"
	"github.com/malonaz/ragchat/internal/turn"
)

// Messages sent to the chat UI loop. Those produced by a turn carry its ID so that the UI drops
// them once the turn is stale.

// StreamRenderMsg carries a throttled snapshot of a streaming answer.
type StreamRenderMsg struct {
	TurnID  turn.ID
	Content string
}

// StreamDoneMsg carries the terminal outcome of a stream.
type StreamDoneMsg struct {
	TurnID  turn.ID
	Content string
	Err     error
}

// SessionEnsuredMsg reports the creation of the session a turn needs.
type SessionEnsuredMsg struct {
	TurnID  turn.ID
	Session *rag.Session
	Err     error
}

// ScrollSettledMsg asks for a last scroll to the bottom after a turn completed.
type ScrollSettledMsg struct {
	TurnID turn.ID
}

// StartupLoadedMsg carries the lists loaded when the UI starts.
type StartupLoadedMsg struct {
	KnowledgeBases    []*rag.KnowledgeBase
	KnowledgeBasesErr error
	Sessions          []*rag.SessionListItem
	SessionsErr       error
}

// SessionsLoadedMsg carries a refreshed session list.
type SessionsLoadedMsg struct {
	Sessions []*rag.SessionListItem
	Err      error
}

// SessionLoadedMsg carries a session opened from the list.
type SessionLoadedMsg struct {
	SessionID int64
	Session   *rag.SessionDetail
	Err       error
}

// SessionDeletedMsg reports the deletion of a session.
type SessionDeletedMsg struct {
	SessionID int64
	Err       error
}

// KnowledgeBasesUpdatedMsg reports that the knowledge bases of the active session were replaced.
type KnowledgeBasesUpdatedMsg struct {
	SessionID        int64
	KnowledgeBaseIDs []int64
	Err              error
}
