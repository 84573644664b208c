package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sourcegraph/conc"

	"github.com/malonaz/ragchat/internal/apierr"
	"github.com/malonaz/ragchat/internal/rag"
	"github.com/malonaz/ragchat/internal/turn"
	"github.com/malonaz/ragchat/internal/types"
)

// scrollSettleDelay is how long after a completed turn the view scrolls to the bottom once more,
// so that content laid out after the last render is revealed.
const scrollSettleDelay = 100 * time.Millisecond

var (
	errNoKnowledgeBase = errors.New("至少选择一个知识库")
	errUserInterrupt   = errors.New("已中断")
)

// sink forwards the output of a turn's stream to the UI loop.
type sink struct {
	m *Model
}

func (s sink) Render(id turn.ID, content string) {
	s.m.Send(types.StreamRenderMsg{TurnID: id, Content: content})
}

func (s sink) Done(id turn.ID, content string, err error) {
	s.m.Send(types.StreamDoneMsg{TurnID: id, Content: content, Err: err})
}

// submit starts a turn for the question in the textarea.
func (m *Model) submit() tea.Cmd {
	question := strings.TrimSpace(m.textarea.Value())
	if question == "" || m.streaming() {
		return nil
	}
	if m.sessionID == 0 && m.selectedKBs.Size() == 0 {
		m.err = errNoKnowledgeBase
		return nil
	}

	if err := m.history.Add(question); err != nil {
		log.Warn("saving question history", "error", err)
	}
	m.historyNavigating = false
	m.textarea.Reset()
	m.err = nil
	m.selectedMessage = -1

	t := turn.New(m.turns.Next(), question, m.sessionID)
	if err := t.Begin(); err != nil {
		m.err = err
		return nil
	}
	m.active = turn.NewController(m.ctx, t, turn.Options{
		RenderInterval:    m.config.Chat.RenderInterval(),
		NearBottomLines:   m.config.Chat.NearBottomLines,
		ScrollResumeDelay: m.config.Chat.ScrollResumeDelay(),
	}, sink{m: m})
	log.Debug("turn started", "turn_id", t.ID, "session_id", t.SessionID, "phase", t.Phase)
	m.recalculateLayout()

	if t.Phase == turn.PhaseSessionEnsure {
		return tea.Batch(m.spinner.Tick, m.ensureSession(m.active, m.selectedKnowledgeBaseIDs()))
	}
	return tea.Batch(m.spinner.Tick, m.beginStreaming())
}

// ensureSession creates the session the turn will be asked in.
func (m *Model) ensureSession(c *turn.Controller, knowledgeBaseIDs []int64) tea.Cmd {
	client := m.client
	ctx := c.Context()
	id := c.ID()
	return func() tea.Msg {
		session, err := client.CreateSession(ctx, &rag.CreateSessionRequest{KnowledgeBaseIDs: knowledgeBaseIDs})
		return types.SessionEnsuredMsg{TurnID: id, Session: session, Err: err}
	}
}

// beginStreaming appends the question and its placeholder answer, then streams the answer.
func (m *Model) beginStreaming() tea.Cmd {
	c := m.active
	t := c.Turn()
	m.runtimeMessages = append(m.runtimeMessages, types.NewUserMessage(types.TurnKey(t.ID)+"-question", t.Question))
	m.answer = types.NewStreamingMessage(t.ID)
	m.runtimeMessages = append(m.runtimeMessages, m.answer)
	m.refreshViewport()
	m.viewport.GotoBottom()

	client := m.client
	ctx := c.Context()
	sessionID := t.SessionID
	question := t.Question
	return func() tea.Msg {
		client.StreamMessage(ctx, sessionID, question, c)
		return nil
	}
}

// abandonTurn releases the active turn. Its late messages are ignored.
func (m *Model) abandonTurn() {
	if m.active == nil {
		return
	}
	log.Debug("turn abandoned", "turn_id", m.active.ID())
	m.active.Release()
	m.active = nil
	m.answer = nil
}

// finishTurn tears the active turn down once it reached a terminal phase.
func (m *Model) finishTurn() tea.Cmd {
	c := m.active
	t := c.Turn()
	m.answer.SetContent(t.DisplayContent())
	m.answer.Finalize(t.Err)
	c.Scroll().ForceOnComplete()
	c.Release()
	m.active = nil
	m.answer = nil
	log.Debug("turn finished", "turn_id", t.ID, "phase", t.Phase, "runes", len([]rune(t.Content)), "error", t.Err)

	m.recalculateLayout()
	m.viewport.GotoBottom()

	id := t.ID
	cmds := []tea.Cmd{
		tea.Tick(scrollSettleDelay, func(time.Time) tea.Msg { return types.ScrollSettledMsg{TurnID: id} }),
		textarea.Blink,
	}
	if t.Phase == turn.PhaseComplete {
		cmds = append(cmds, m.refreshSessions())
	}
	return tea.Batch(cmds...)
}

// resetSession starts over with no session, keeping the knowledge-base selection.
func (m *Model) resetSession() {
	m.abandonTurn()
	m.sessionID = 0
	m.sessionTitle = ""
	m.runtimeMessages = nil
	m.selectedMessage = -1
	m.err = nil
	m.recalculateLayout()
}

// loadStartup loads the knowledge bases and the sessions concurrently.
func (m *Model) loadStartup() tea.Cmd {
	client := m.client
	ctx := m.ctx
	return func() tea.Msg {
		msg := types.StartupLoadedMsg{}
		wg := conc.NewWaitGroup()
		wg.Go(func() {
			msg.KnowledgeBases, msg.KnowledgeBasesErr = client.ListKnowledgeBases(ctx, nil)
		})
		wg.Go(func() {
			msg.Sessions, msg.SessionsErr = client.ListSessions(ctx)
		})
		wg.Wait()
		return msg
	}
}

func (m *Model) refreshSessions() tea.Cmd {
	client := m.client
	ctx := m.ctx
	return func() tea.Msg {
		sessions, err := client.ListSessions(ctx)
		return types.SessionsLoadedMsg{Sessions: sessions, Err: err}
	}
}

func (m *Model) loadSession(sessionID int64) tea.Cmd {
	client := m.client
	ctx := m.ctx
	return func() tea.Msg {
		session, err := client.GetSession(ctx, sessionID)
		return types.SessionLoadedMsg{SessionID: sessionID, Session: session, Err: err}
	}
}

func (m *Model) deleteSession(sessionID int64) tea.Cmd {
	client := m.client
	ctx := m.ctx
	return func() tea.Msg {
		return types.SessionDeletedMsg{SessionID: sessionID, Err: client.DeleteSession(ctx, sessionID)}
	}
}

func (m *Model) toggleSessionPin(sessionID int64) tea.Cmd {
	client := m.client
	ctx := m.ctx
	return func() tea.Msg {
		if err := client.ToggleSessionPin(ctx, sessionID); err != nil {
			return types.SessionsLoadedMsg{Err: err}
		}
		sessions, err := client.ListSessions(ctx)
		return types.SessionsLoadedMsg{Sessions: sessions, Err: err}
	}
}

func (m *Model) updateSessionKnowledgeBases(sessionID int64, knowledgeBaseIDs []int64) tea.Cmd {
	client := m.client
	ctx := m.ctx
	return func() tea.Msg {
		err := client.UpdateSessionKnowledgeBases(ctx, sessionID, knowledgeBaseIDs)
		return types.KnowledgeBasesUpdatedMsg{SessionID: sessionID, KnowledgeBaseIDs: knowledgeBaseIDs, Err: err}
	}
}

// streamError maps the terminal error of a stream to the one recorded on the turn.
func streamError(err error) error {
	if errors.Is(err, context.Canceled) {
		return errUserInterrupt
	}
	return err
}

// describe prefixes the best message of err.
func describe(prefix string, err error) error {
	return errors.New(prefix + "：" + apierr.Message(err))
}
