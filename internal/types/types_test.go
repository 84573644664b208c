package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malonaz/ragchat/internal/markdown"
	"github.com/malonaz/ragchat/internal/rag"
)

func TestRuntimeMessagesFromSession(t *testing.T) {
	messages := RuntimeMessagesFromSession([]*rag.Message{
		{ID: 1, Role: rag.RoleUser, Content: "问题"},
		{ID: 2, Role: rag.RoleAssistant, Content: "答案\n```go\nx\n```"},
		{Role: rag.RoleAssistant, Content: "unsaved"},
	})
	require.Len(t, messages, 3)

	assert.Equal(t, RuntimeMessageTypeUser, messages[0].Type)
	assert.Equal(t, "message-1", messages[0].Key)
	assert.Equal(t, RuntimeMessageTypeAssistant, messages[1].Type)
	require.Len(t, messages[1].Blocks, 2)
	assert.Equal(t, markdown.BlockCode, messages[1].Blocks[1].Kind)
	assert.Equal(t, "message-index-2", messages[2].Key)
}

func TestStreamingMessage(t *testing.T) {
	message := NewStreamingMessage(4)
	assert.Equal(t, "turn-4", message.Key)
	assert.True(t, message.IsStreaming)
	assert.Empty(t, message.Blocks)

	message.SetContent(`a\nb`)
	assert.Equal(t, `a\nb`, message.Content())
	require.Len(t, message.Blocks, 1)
	assert.Equal(t, "a\nb", message.Blocks[0].Text)

	message.Finalize(assert.AnError)
	assert.False(t, message.IsStreaming)
	assert.ErrorIs(t, message.Err, assert.AnError)
}
