// Package tui implements the interactive chat: a bubbletea program that streams answers into a
// viewport while the user keeps control of scrolling.
package tui

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/scylladb/go-set/i64set"
	"go.dalton.dog/bubbleup"

	"github.com/malonaz/ragchat/cli/tui/styles"
	"github.com/malonaz/ragchat/internal/configuration"
	"github.com/malonaz/ragchat/internal/debug"
	"github.com/malonaz/ragchat/internal/history"
	"github.com/malonaz/ragchat/internal/markdown"
	"github.com/malonaz/ragchat/internal/rag"
	"github.com/malonaz/ragchat/internal/turn"
	"github.com/malonaz/ragchat/internal/types"
)

var log *slog.Logger

// Client is the part of the rag client the chat uses.
type Client interface {
	ListKnowledgeBases(ctx context.Context, request *rag.ListKnowledgeBasesRequest) ([]*rag.KnowledgeBase, error)
	ListSessions(ctx context.Context) ([]*rag.SessionListItem, error)
	GetSession(ctx context.Context, sessionID int64) (*rag.SessionDetail, error)
	CreateSession(ctx context.Context, request *rag.CreateSessionRequest) (*rag.Session, error)
	UpdateSessionKnowledgeBases(ctx context.Context, sessionID int64, knowledgeBaseIDs []int64) error
	ToggleSessionPin(ctx context.Context, sessionID int64) error
	DeleteSession(ctx context.Context, sessionID int64) error
	StreamMessage(ctx context.Context, sessionID int64, question string, handler rag.Handler)
}

// Panel is an overlay listing knowledge bases or sessions.
type Panel int

const (
	PanelNone Panel = iota
	PanelKnowledgeBases
	PanelSessions
)

// Options of the chat.
type Options struct {
	// KnowledgeBaseIDs selected on start.
	KnowledgeBaseIDs []int64
	// SessionID opened on start, if not zero.
	SessionID int64
}

// Model represents the Bubble Tea model for the chat.
type Model struct {
	// Core dependencies
	ctx    context.Context
	config *configuration.Config
	client Client
	opts   Options

	// Session state. sessionID is zero until the first question creates a session.
	sessionID      int64
	sessionTitle   string
	knowledgeBases []*rag.KnowledgeBase
	selectedKBs    *i64set.Set
	sessions       []*rag.SessionListItem

	// Turn state. active is nil when no turn is in flight.
	turns  turn.Sequence
	active *turn.Controller
	// answer is the placeholder of the active turn.
	answer *types.RuntimeMessage

	runtimeMessages []*types.RuntimeMessage

	// UI components
	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *markdown.Renderer

	// UI state
	titleHeight int
	width       int
	height      int
	ready       bool
	err         error
	quitting    bool

	// Overlay panels.
	panel            Panel
	panelCursor      int
	pendingSelection *i64set.Set

	alert bubbleup.AlertModel

	// Input history
	history           *history.History
	historyNavigating bool

	// Index of the selected message, -1 if none.
	selectedMessage int
	// First viewport line of each message, as of the last render.
	messageOffsets []int

	// send delivers messages produced off the UI loop.
	send   func(tea.Msg)
	sendMu sync.Mutex
}

// New creates a new chat model.
func New(ctx context.Context, config *configuration.Config, client Client, opts Options) (*Model, error) {
	log = debug.GetLogger()

	ta := textarea.New()
	ta.Placeholder = "输入问题... (Ctrl+J 发送, Alt+K 知识库, Alt+S 会话, Alt+R 新会话, Ctrl+C 退出)"
	ta.Focus()
	ta.CharLimit = 0
	ta.SetWidth(styles.DefaultTextareaWidth)
	ta.SetHeight(styles.MinTextareaHeight)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(true)
	ta.Prompt = ""

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SpinnerStyle

	renderer, err := markdown.NewRenderer(styles.DefaultTextareaWidth)
	if err != nil {
		return nil, err
	}

	h, err := history.New(config.Chat.HistoryFile, history.DefaultMaxSize)
	if err != nil {
		log.Warn("loading question history", "error", err)
		h, _ = history.New("", history.DefaultMaxSize)
	}

	kbIDs := opts.KnowledgeBaseIDs
	if len(kbIDs) == 0 {
		kbIDs = config.Chat.DefaultKnowledgeBaseIDs
	}

	return &Model{
		ctx:             ctx,
		config:          config,
		client:          client,
		opts:            opts,
		sessionID:       opts.SessionID,
		selectedKBs:     i64set.New(kbIDs...),
		textarea:        ta,
		spinner:         sp,
		renderer:        renderer,
		alert:           *bubbleup.NewAlertModel(25, true, 1),
		history:         h,
		selectedMessage: -1,
		send:            func(tea.Msg) {},
	}, nil
}

// SetProgram sets the tea.Program that receives messages sent from goroutines.
func (m *Model) SetProgram(p *tea.Program) {
	m.setSend(p.Send)
}

func (m *Model) setSend(send func(tea.Msg)) {
	m.sendMu.Lock()
	defer m.sendMu.Unlock()
	m.send = send
}

// Send delivers msg to the UI loop. It is safe for concurrent use.
func (m *Model) Send(msg tea.Msg) {
	m.sendMu.Lock()
	send := m.send
	m.sendMu.Unlock()
	send(msg)
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textarea.Blink,
		m.alert.Init(),
		m.loadStartup(),
	}
	if m.opts.SessionID != 0 {
		cmds = append(cmds, m.loadSession(m.opts.SessionID))
	}
	return tea.Batch(cmds...)
}

// streaming returns true while a turn is in flight.
func (m *Model) streaming() bool {
	return m.active != nil
}

// selectedKnowledgeBaseIDs returns the selected knowledge bases in list order, then any selected
// id missing from the list.
func (m *Model) selectedKnowledgeBaseIDs() []int64 {
	ids := make([]int64, 0, m.selectedKBs.Size())
	seen := i64set.NewWithSize(m.selectedKBs.Size())
	for _, kb := range m.knowledgeBases {
		if m.selectedKBs.Has(kb.ID) {
			ids = append(ids, kb.ID)
			seen.Add(kb.ID)
		}
	}
	var unknown []int64
	for _, id := range m.selectedKBs.List() {
		if !seen.Has(id) {
			unknown = append(unknown, id)
		}
	}
	slices.Sort(unknown)
	return append(ids, unknown...)
}

// knowledgeBaseName returns the name of a knowledge base, or "" if it is unknown.
func (m *Model) knowledgeBaseName(id int64) string {
	for _, kb := range m.knowledgeBases {
		if kb.ID == id {
			return kb.Name
		}
	}
	return ""
}

// Close releases the turn still in flight, if any.
func (m *Model) Close() {
	m.abandonTurn()
}
