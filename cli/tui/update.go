package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/scylladb/go-set/i64set"
	"go.dalton.dog/bubbleup"

	"github.com/malonaz/ragchat/internal/apierr"
	"github.com/malonaz/ragchat/internal/types"
)

type KeyMapChat struct {
	Send           key.Binding
	Quit           key.Binding
	NewSession     key.Binding
	KnowledgeBases key.Binding
	Sessions       key.Binding
}

type KeyMapViewport struct {
	ToPreviousMessage key.Binding
	ToNextMessage     key.Binding
	ClearSelection    key.Binding
	ScrollUp          key.Binding
	ScrollDown        key.Binding
	Copy              key.Binding
	CopyCode          key.Binding
}

type InputKeyMap struct {
	PreviousHistoryEntry key.Binding
	NextHistoryEntry     key.Binding
}

var keyMapChat = KeyMapChat{
	Send: key.NewBinding(
		key.WithKeys("ctrl+j"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
	),
	NewSession: key.NewBinding(
		key.WithKeys("alt+r"),
	),

	// Panels.
	KnowledgeBases: key.NewBinding(
		key.WithKeys("alt+k"),
	),
	Sessions: key.NewBinding(
		key.WithKeys("alt+s"),
	),
}

var keyMapViewport = KeyMapViewport{
	// Message navigation.
	ToPreviousMessage: key.NewBinding(
		key.WithKeys("alt+{"),
	),
	ToNextMessage: key.NewBinding(
		key.WithKeys("alt+}"),
	),
	ClearSelection: key.NewBinding(
		key.WithKeys("esc"),
	),

	// Scrolling.
	ScrollUp: key.NewBinding(
		key.WithKeys("ctrl+p"),
	),
	ScrollDown: key.NewBinding(
		key.WithKeys("ctrl+n"),
	),

	// Copy.
	Copy: key.NewBinding(
		key.WithKeys("alt+w"),
	),
	CopyCode: key.NewBinding(
		key.WithKeys("alt+c"),
	),
}

var inputKeyMap = InputKeyMap{
	PreviousHistoryEntry: key.NewBinding(
		key.WithKeys("alt+p"),
	),
	NextHistoryEntry: key.NewBinding(
		key.WithKeys("alt+n"),
	),
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// Always update the alert model with every message
	outAlert, alertCmd := m.alert.Update(msg)
	m.alert = outAlert.(bubbleup.AlertModel)
	if alertCmd != nil {
		cmds = append(cmds, alertCmd)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.panel != PanelNone {
			cmds = append(cmds, m.updatePanel(msg))
			return m, tea.Batch(cmds...)
		}
		if cmd, handled := m.handleKey(msg); handled {
			cmds = append(cmds, cmd)
			return m, tea.Batch(cmds...)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalculateLayout()

	case types.StartupLoadedMsg:
		m.knowledgeBases = msg.KnowledgeBases
		m.sessions = msg.Sessions
		switch {
		case msg.KnowledgeBasesErr != nil:
			m.err = describe("加载知识库失败", msg.KnowledgeBasesErr)
		case msg.SessionsErr != nil:
			m.err = describe("加载会话失败", msg.SessionsErr)
		}
		m.recalculateLayout()
		return m, tea.Batch(cmds...)

	case types.SessionsLoadedMsg:
		if msg.Err != nil {
			m.err = describe("加载会话失败", msg.Err)
		} else {
			m.sessions = msg.Sessions
			m.panelCursor = min(m.panelCursor, max(len(m.sessions)-1, 0))
			m.syncSessionTitle()
		}
		m.recalculateLayout()
		return m, tea.Batch(cmds...)

	case types.SessionLoadedMsg:
		cmds = append(cmds, m.handleSessionLoaded(msg))
		return m, tea.Batch(cmds...)

	case types.SessionDeletedMsg:
		if msg.Err != nil {
			m.err = describe("删除会话失败", msg.Err)
			m.recalculateLayout()
			return m, tea.Batch(cmds...)
		}
		if msg.SessionID == m.sessionID {
			m.resetSession()
		}
		cmds = append(cmds, m.alert.NewAlertCmd(bubbleup.InfoKey, "会话已删除"), m.refreshSessions())
		return m, tea.Batch(cmds...)

	case types.KnowledgeBasesUpdatedMsg:
		if msg.Err != nil {
			m.err = describe("更新知识库失败", msg.Err)
			m.recalculateLayout()
			return m, tea.Batch(cmds...)
		}
		cmds = append(cmds, m.alert.NewAlertCmd(bubbleup.InfoKey, "会话知识库已更新"), m.refreshSessions())
		return m, tea.Batch(cmds...)

	case types.SessionEnsuredMsg:
		cmds = append(cmds, m.handleSessionEnsured(msg))
		return m, tea.Batch(cmds...)

	case types.StreamRenderMsg:
		if !m.active.Accepts(msg.TurnID) {
			return m, tea.Batch(cmds...)
		}
		if !m.active.Turn().Update(msg.Content) {
			return m, tea.Batch(cmds...)
		}
		distance := m.distanceFromBottom()
		m.answer.SetContent(msg.Content)
		m.refreshViewport()
		if m.active.Scroll().ShouldAutoScroll(distance) {
			m.viewport.GotoBottom()
		}
		return m, tea.Batch(cmds...)

	case types.StreamDoneMsg:
		if !m.active.Accepts(msg.TurnID) {
			log.Debug("ignoring stale stream outcome", "turn_id", msg.TurnID)
			return m, tea.Batch(cmds...)
		}
		t := m.active.Turn()
		if msg.Err == nil {
			if err := t.Complete(msg.Content); err != nil {
				log.Error("completing turn", "error", err)
			}
		} else if err := t.Fail(msg.Content, streamError(msg.Err)); err != nil {
			log.Error("failing turn", "error", err)
		}
		cmds = append(cmds, m.finishTurn())
		return m, tea.Batch(cmds...)

	case types.ScrollSettledMsg:
		if m.turns.IsCurrent(msg.TurnID) && !m.streaming() {
			m.viewport.GotoBottom()
		}
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		if m.streaming() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	if !m.streaming() && m.panel == PanelNone {
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
		m.adjustTextareaHeight()
	}

	offset := m.viewport.YOffset
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.streaming() {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			cmds = append(cmds, cmd)
		} else {
			switch msg.String() {
			case "j", "k", "g", "G", "u", "d", "b", "ctrl+u", "ctrl+d", "f", " ":
				// Don't pass vim navigation keys to viewport while typing
			default:
				var cmd tea.Cmd
				m.viewport, cmd = m.viewport.Update(msg)
				cmds = append(cmds, cmd)
			}
		}
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.viewport.YOffset != offset {
		m.userScrolled()
	}

	return m, tea.Batch(cmds...)
}

// handleKey handles the keys of the chat outside of panels. It returns false for keys that
// fall through to the textarea and the viewport.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, keyMapChat.Quit):
		if m.streaming() {
			m.active.Cancel()
			return nil, true // Wait for StreamDoneMsg
		}
		m.quitting = true
		return tea.Quit, true

	case key.Matches(msg, keyMapChat.Send):
		m.selectedMessage = -1
		return m.submit(), true

	case key.Matches(msg, keyMapChat.NewSession):
		m.resetSession()
		return textarea.Blink, true

	case key.Matches(msg, keyMapChat.KnowledgeBases):
		return m.openPanel(PanelKnowledgeBases), true

	case key.Matches(msg, keyMapChat.Sessions):
		return m.openPanel(PanelSessions), true

	case key.Matches(msg, keyMapViewport.ToPreviousMessage):
		if m.toPreviousMessage() {
			m.refreshViewport()
			m.scrollToSelectedMessage()
			m.userScrolled()
		}
		return nil, true

	case key.Matches(msg, keyMapViewport.ToNextMessage):
		if m.toNextMessage() {
			m.refreshViewport()
			m.scrollToSelectedMessage()
			m.userScrolled()
		}
		return nil, true

	case key.Matches(msg, keyMapViewport.ClearSelection):
		if m.clearSelection() {
			m.refreshViewport()
		}
		return nil, true

	case key.Matches(msg, keyMapViewport.ScrollUp):
		m.viewport.LineUp(3)
		m.userScrolled()
		return nil, true

	case key.Matches(msg, keyMapViewport.ScrollDown):
		m.viewport.LineDown(3)
		m.userScrolled()
		return nil, true

	case key.Matches(msg, keyMapViewport.Copy):
		return m.copyMessage(false), true

	case key.Matches(msg, keyMapViewport.CopyCode):
		return m.copyMessage(true), true
	}

	if m.streaming() {
		return nil, false
	}
	switch {
	case key.Matches(msg, inputKeyMap.PreviousHistoryEntry):
		if entry, ok := m.history.Previous(m.textarea.Value()); ok {
			m.textarea.SetValue(entry)
			m.historyNavigating = true
			m.adjustTextareaHeight()
		}
		return nil, true

	case key.Matches(msg, inputKeyMap.NextHistoryEntry):
		if entry, ok := m.history.Next(); ok {
			m.textarea.SetValue(entry)
			m.historyNavigating = true
			m.adjustTextareaHeight()
		}
		return nil, true
	}

	if m.historyNavigating {
		switch msg.Type {
		case tea.KeyEnter, tea.KeyRunes, tea.KeyBackspace, tea.KeyDelete:
			m.history.Reset()
			m.historyNavigating = false
		}
	}
	return nil, false
}

// userScrolled reports a scroll made by the user to the active turn.
func (m *Model) userScrolled() {
	if m.active != nil {
		m.active.Scroll().Observe(m.distanceFromBottom())
	}
}

// syncSessionTitle picks up the title the service generated for the current session.
func (m *Model) syncSessionTitle() {
	for _, session := range m.sessions {
		if session.ID == m.sessionID {
			m.sessionTitle = session.Title
			return
		}
	}
}

func (m *Model) handleSessionEnsured(msg types.SessionEnsuredMsg) tea.Cmd {
	if !m.active.Accepts(msg.TurnID) {
		log.Debug("ignoring stale session creation", "turn_id", msg.TurnID)
		return nil
	}
	t := m.active.Turn()
	if msg.Err != nil {
		if err := t.Abort(msg.Err); err != nil {
			log.Error("aborting turn", "error", err)
		}
		m.abandonTurn()
		m.textarea.SetValue(t.Question)
		m.err = describe("创建会话失败", msg.Err)
		m.recalculateLayout()
		return textarea.Blink
	}
	if err := t.SessionEnsured(msg.Session.ID); err != nil {
		log.Error("ensuring session", "error", err)
		m.abandonTurn()
		return nil
	}
	m.sessionID = msg.Session.ID
	m.sessionTitle = msg.Session.Title
	m.recalculateLayout()
	return tea.Batch(m.beginStreaming(), m.refreshSessions())
}

func (m *Model) handleSessionLoaded(msg types.SessionLoadedMsg) tea.Cmd {
	if msg.SessionID != m.sessionID {
		return nil
	}
	if msg.Err != nil {
		var cmd tea.Cmd
		if apierr.IsNotFound(msg.Err) {
			m.resetSession()
			cmd = m.refreshSessions()
		}
		m.err = describe("加载会话失败", msg.Err)
		m.recalculateLayout()
		return cmd
	}
	session := msg.Session
	m.sessionTitle = session.Title
	m.selectedKBs = i64set.New(session.KnowledgeBaseIDs()...)
	m.runtimeMessages = types.RuntimeMessagesFromSession(session.Messages)
	m.selectedMessage = -1
	m.err = nil
	m.recalculateLayout()
	m.viewport.GotoBottom()
	return nil
}
