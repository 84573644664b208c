package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"go.dalton.dog/bubbleup"
	"golang.design/x/clipboard"

	"github.com/malonaz/ragchat/internal/markdown"
	"github.com/malonaz/ragchat/internal/types"
)

var (
	clipboardOnce sync.Once
	clipboardErr  error
)

// toPreviousMessage selects the previous message, or the last one if none is selected.
// Returns true if the selection changed.
func (m *Model) toPreviousMessage() bool {
	if len(m.runtimeMessages) == 0 {
		return false
	}
	if m.selectedMessage == -1 {
		m.selectedMessage = len(m.runtimeMessages) - 1
		return true
	}
	if m.selectedMessage == 0 {
		return false
	}
	m.selectedMessage--
	return true
}

// toNextMessage selects the next message. Returns true if the selection changed.
func (m *Model) toNextMessage() bool {
	if m.selectedMessage == -1 || m.selectedMessage >= len(m.runtimeMessages)-1 {
		return false
	}
	m.selectedMessage++
	return true
}

// clearSelection returns true if a message was selected.
func (m *Model) clearSelection() bool {
	if m.selectedMessage == -1 {
		return false
	}
	m.selectedMessage = -1
	return true
}

// copyTarget returns the selected message, or the last answer.
func (m *Model) copyTarget() *types.RuntimeMessage {
	if m.selectedMessage >= 0 && m.selectedMessage < len(m.runtimeMessages) {
		return m.runtimeMessages[m.selectedMessage]
	}
	for i := len(m.runtimeMessages) - 1; i >= 0; i-- {
		if m.runtimeMessages[i].Type == types.RuntimeMessageTypeAssistant {
			return m.runtimeMessages[i]
		}
	}
	return nil
}

// copyMessage copies the selected message, or the last answer. With codeOnly, only its last
// code block is copied.
func (m *Model) copyMessage(codeOnly bool) tea.Cmd {
	target := m.copyTarget()
	if target == nil {
		return nil
	}
	content := markdown.Normalize(target.Content())
	if codeOnly {
		code, ok := markdown.LastCodeBlock(content)
		if !ok {
			return m.alert.NewAlertCmd(bubbleup.WarnKey, "没有代码块")
		}
		content = code
	}

	clipboardOnce.Do(func() { clipboardErr = clipboard.Init() })
	if clipboardErr != nil {
		log.Warn("initializing clipboard", "error", clipboardErr)
		return m.alert.NewAlertCmd(bubbleup.ErrorKey, "剪贴板不可用")
	}
	clipboard.Write(clipboard.FmtText, []byte(content))
	return m.alert.NewAlertCmd(bubbleup.InfoKey, "已复制到剪贴板")
}
