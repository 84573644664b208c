package types

import (
	"fmt"
	"strings"

	"github.com/malonaz/ragchat/internal/markdown"
	"github.com/malonaz/ragchat/internal/rag"
	"github.com/malonaz/ragchat/internal/turn"
)

// RuntimeMessageType represents the type of runtime message.
type RuntimeMessageType int

const (
	// RuntimeMessageTypeUser represents a question.
	RuntimeMessageTypeUser RuntimeMessageType = iota
	// RuntimeMessageTypeAssistant represents an answer.
	RuntimeMessageTypeAssistant
)

// RuntimeMessage is a message displayed in the chat UI.
type RuntimeMessage struct {
	Type RuntimeMessageType

	// Key identifies the message for render caching.
	Key string

	content string

	// Blocks of the normalized content.
	Blocks []markdown.Block

	// IsStreaming is true while the answer is being received.
	IsStreaming bool

	// Err is set on an answer that failed. Its content is then the failure text.
	Err error
}

// Content returns the raw content of the message.
func (m *RuntimeMessage) Content() string {
	return strings.Trim(m.content, "\n")
}

// SetContent replaces the content and re-parses blocks.
func (m *RuntimeMessage) SetContent(content string) {
	m.content = content
	m.Blocks = markdown.SplitBlocks(markdown.Normalize(content))
}

// Finalize marks the message as no longer streaming and sets an error if provided.
func (m *RuntimeMessage) Finalize(err error) {
	m.IsStreaming = false
	m.Err = err
}

// NewUserMessage creates a new user runtime message.
func NewUserMessage(key, content string) *RuntimeMessage {
	m := &RuntimeMessage{Type: RuntimeMessageTypeUser, Key: key}
	m.SetContent(content)
	return m
}

// NewAssistantMessage creates a new assistant runtime message.
func NewAssistantMessage(key, content string) *RuntimeMessage {
	m := &RuntimeMessage{Type: RuntimeMessageTypeAssistant, Key: key}
	m.SetContent(content)
	return m
}

// NewStreamingMessage creates the empty answer of a turn.
func NewStreamingMessage(id turn.ID) *RuntimeMessage {
	m := NewAssistantMessage(TurnKey(id), "")
	m.IsStreaming = true
	return m
}

// TurnKey is the render key of the answer of a turn.
func TurnKey(id turn.ID) string {
	return fmt.Sprintf("turn-%d", id)
}

// RuntimeMessagesFromSession converts the stored messages of a session.
func RuntimeMessagesFromSession(messages []*rag.Message) []*RuntimeMessage {
	result := make([]*RuntimeMessage, 0, len(messages))
	for i, message := range messages {
		key := fmt.Sprintf("message-%d", message.ID)
		if message.ID == 0 {
			key = fmt.Sprintf("message-index-%d", i)
		}
		if message.Role == rag.RoleUser {
			result = append(result, NewUserMessage(key, message.Content))
			continue
		}
		result = append(result, NewAssistantMessage(key, message.Content))
	}
	return result
}
