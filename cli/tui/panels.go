package tui

import (
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/scylladb/go-set/i64set"
	"go.dalton.dog/bubbleup"
)

// openPanel shows panel, or hides it if it is already shown.
func (m *Model) openPanel(panel Panel) tea.Cmd {
	if m.panel == panel {
		m.closePanel()
		return textarea.Blink
	}
	m.panel = panel
	m.panelCursor = 0
	m.textarea.Blur()
	switch panel {
	case PanelKnowledgeBases:
		m.pendingSelection = i64set.New(m.selectedKBs.List()...)
		return nil
	case PanelSessions:
		for i, session := range m.sessions {
			if session.ID == m.sessionID {
				m.panelCursor = i
			}
		}
		return m.refreshSessions()
	}
	return nil
}

func (m *Model) closePanel() {
	m.panel = PanelNone
	m.pendingSelection = nil
	m.textarea.Focus()
}

func (m *Model) panelLen() int {
	switch m.panel {
	case PanelKnowledgeBases:
		return len(m.knowledgeBases)
	case PanelSessions:
		return len(m.sessions)
	}
	return 0
}

// updatePanel handles the keys while a panel is shown.
func (m *Model) updatePanel(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.closePanel()
		return textarea.Blink
	case "alt+k":
		return m.openPanel(PanelKnowledgeBases)
	case "alt+s":
		return m.openPanel(PanelSessions)
	case "ctrl+c":
		if m.streaming() {
			m.active.Cancel()
		}
		return nil
	case "up", "ctrl+p", "k":
		m.panelCursor = max(m.panelCursor-1, 0)
		return nil
	case "down", "ctrl+n", "j":
		m.panelCursor = min(m.panelCursor+1, max(m.panelLen()-1, 0))
		return nil
	}

	switch m.panel {
	case PanelKnowledgeBases:
		return m.updateKnowledgeBasePanel(msg)
	case PanelSessions:
		return m.updateSessionPanel(msg)
	}
	return nil
}

func (m *Model) updateKnowledgeBasePanel(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case " ", "x":
		if m.panelCursor >= len(m.knowledgeBases) {
			return nil
		}
		id := m.knowledgeBases[m.panelCursor].ID
		if m.pendingSelection.Has(id) {
			m.pendingSelection.Remove(id)
		} else {
			m.pendingSelection.Add(id)
		}

	case "enter":
		// A new selection applies to the next session.
		if !m.pendingSelection.IsEqual(m.selectedKBs) {
			m.selectedKBs = m.pendingSelection
			if m.sessionID != 0 {
				m.resetSession()
			}
		}
		m.closePanel()
		m.recalculateLayout()
		return textarea.Blink

	case "ctrl+u":
		if m.sessionID == 0 {
			return m.alert.NewAlertCmd(bubbleup.WarnKey, "当前没有会话")
		}
		if m.pendingSelection.Size() == 0 {
			return m.alert.NewAlertCmd(bubbleup.WarnKey, errNoKnowledgeBase.Error())
		}
		m.selectedKBs = m.pendingSelection
		m.closePanel()
		m.recalculateLayout()
		return tea.Batch(textarea.Blink, m.updateSessionKnowledgeBases(m.sessionID, m.selectedKnowledgeBaseIDs()))
	}
	return nil
}

func (m *Model) updateSessionPanel(msg tea.KeyMsg) tea.Cmd {
	if m.panelCursor >= len(m.sessions) {
		return nil
	}
	session := m.sessions[m.panelCursor]

	switch msg.String() {
	case "enter":
		m.closePanel()
		if session.ID == m.sessionID && !m.streaming() {
			return textarea.Blink
		}
		m.abandonTurn()
		m.sessionID = session.ID
		m.sessionTitle = session.Title
		m.runtimeMessages = nil
		m.selectedMessage = -1
		m.err = nil
		m.recalculateLayout()
		return tea.Batch(textarea.Blink, m.loadSession(session.ID))

	case "ctrl+d":
		if session.ID == m.sessionID {
			m.abandonTurn()
		}
		return m.deleteSession(session.ID)

	case "ctrl+t":
		return m.toggleSessionPin(session.ID)
	}
	return nil
}
