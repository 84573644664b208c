package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/malonaz/ragchat/cli/tui/styles"
	"github.com/malonaz/ragchat/internal/apierr"
	"github.com/malonaz/ragchat/internal/types"
)

// View renders the model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.renderTitle())
	b.WriteString("\n")

	switch m.panel {
	case PanelKnowledgeBases:
		b.WriteString(m.renderPanel(m.knowledgeBasePanel()))
	case PanelSessions:
		b.WriteString(m.renderPanel(m.sessionPanel()))
	default:
		b.WriteString(styles.ViewportStyle.Render(m.viewport.View()))
	}
	b.WriteString("\n")

	if m.streaming() {
		b.WriteString(fmt.Sprintf("%s 生成中... (Ctrl+C 中断)\n", m.spinner.View()))
	} else {
		b.WriteString(styles.TextAreaStyle.Render(m.textarea.View()))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(styles.ErrorStyle.Render(fmt.Sprintf("错误: %s", apierr.Message(m.err))))
	}

	return m.alert.Render(b.String())
}

func (m *Model) renderTitle() string {
	kbNames := make([]string, 0, m.selectedKBs.Size())
	for _, id := range m.selectedKnowledgeBaseIDs() {
		name := m.knowledgeBaseName(id)
		if name == "" {
			name = fmt.Sprintf("#%d", id)
		}
		kbNames = append(kbNames, name)
	}
	kbs := "未选择知识库"
	if len(kbNames) > 0 {
		kbs = styles.Truncate(strings.Join(kbNames, ", "), styles.TruncateLength)
	}

	sessionTitle := "新对话"
	if m.sessionID != 0 {
		sessionTitle = fmt.Sprintf("#%d", m.sessionID)
		if m.sessionTitle != "" {
			sessionTitle = styles.Truncate(m.sessionTitle, styles.TruncateLength)
		}
	}

	phase := "空闲"
	if m.active != nil {
		phase = m.active.Turn().Phase.String()
	}

	title := fmt.Sprintf(" 📚 %s │ 💬 %s │ ⚙ %s ", kbs, sessionTitle, phase)
	return styles.TitleStyle.Width(m.width).Render(title)
}

// renderMessages renders the conversation and records where each message starts.
func (m *Model) renderMessages() string {
	if len(m.runtimeMessages) == 0 {
		m.messageOffsets = nil
		return styles.EmptyStyle.Render("选择知识库后输入问题开始对话")
	}

	var b strings.Builder
	m.messageOffsets = make([]int, len(m.runtimeMessages))
	line := 0
	for i, rm := range m.runtimeMessages {
		if i > 0 {
			b.WriteString("\n\n")
			line += 2
		}
		m.messageOffsets[i] = line
		rendered := m.renderMessage(rm, i == m.selectedMessage)
		b.WriteString(rendered)
		line += lipgloss.Height(rendered) - 1
	}
	return b.String()
}

func (m *Model) renderMessage(rm *types.RuntimeMessage, selected bool) string {
	if rm.Type == types.RuntimeMessageTypeUser {
		style := styles.UserMessageStyle
		if selected {
			style = styles.Selected(style)
		}
		return style.Render(m.renderer.Render(rm.Key, rm.Content(), true))
	}

	style := styles.AnswerMessageStyle
	if selected {
		style = styles.Selected(style)
	}
	var b strings.Builder
	content := rm.Content()
	switch {
	case content != "":
		rendered := m.renderer.Render(rm.Key, content, !rm.IsStreaming)
		if rm.IsStreaming {
			rendered += styles.CursorStyle.Render("▋")
		}
		b.WriteString(style.Render(rendered))
	case rm.IsStreaming:
		b.WriteString(style.Render(styles.CursorStyle.Render("▋")))
	}

	if rm.Err != nil {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		if errors.Is(rm.Err, errUserInterrupt) {
			b.WriteString(styles.MessageInterruptStyle.Render("⚡ 已中断"))
		} else {
			b.WriteString(styles.MessageErrorStyle.Render(fmt.Sprintf("⚠️ %s", apierr.Message(rm.Err))))
		}
	}
	return b.String()
}

// panelView is the content of an overlay panel.
type panelView struct {
	title string
	items []string
	help  string
	empty string
}

func (m *Model) knowledgeBasePanel() panelView {
	view := panelView{
		title: fmt.Sprintf("📚 知识库 (已选 %d)", m.pendingSelection.Size()),
		help:  "↑/↓ 移动 · 空格 选择 · Enter 确定 · Ctrl+U 更新当前会话 · Esc 取消",
		empty: "暂无知识库",
	}
	for _, kb := range m.knowledgeBases {
		check := "[ ]"
		if m.pendingSelection.Has(kb.ID) {
			check = "[x]"
		}
		item := fmt.Sprintf("%s %s", check, styles.Truncate(kb.Name, styles.TruncateLength))
		if kb.Category != "" {
			item += styles.DimTextStyle.Render(fmt.Sprintf("  %s", kb.Category))
		}
		item += styles.DimTextStyle.Render(fmt.Sprintf("  %d 次提问", kb.QuestionCount))
		view.items = append(view.items, item)
	}
	return view
}

func (m *Model) sessionPanel() panelView {
	view := panelView{
		title: fmt.Sprintf("💬 会话 (%d)", len(m.sessions)),
		help:  "↑/↓ 移动 · Enter 打开 · Ctrl+T 置顶 · Ctrl+D 删除 · Esc 关闭",
		empty: "暂无会话",
	}
	for _, session := range m.sessions {
		marker := "  "
		if session.IsPinned {
			marker = "📌"
		}
		if session.ID == m.sessionID {
			marker = "▶ "
		}
		title := session.Title
		if title == "" {
			title = "新对话"
		}
		item := fmt.Sprintf("%s %s", marker, styles.Truncate(title, styles.TruncateLength))
		item += styles.DimTextStyle.Render(fmt.Sprintf("  %d 条消息", session.MessageCount))
		if !session.UpdatedAt.IsZero() {
			item += styles.DimTextStyle.Render("  " + session.UpdatedAt.Local().Format("01-02 15:04"))
		}
		view.items = append(view.items, item)
	}
	return view
}

// renderPanel renders a window of at most PanelMaxItems items around the cursor.
func (m *Model) renderPanel(view panelView) string {
	var b strings.Builder
	b.WriteString(styles.PanelTitleStyle.Render(view.title))
	b.WriteString("\n\n")

	if len(view.items) == 0 {
		b.WriteString(styles.DimTextStyle.Render(view.empty))
		b.WriteString("\n")
	}
	start, end := panelWindow(m.panelCursor, len(view.items), styles.PanelMaxItems)
	for i := start; i < end; i++ {
		if i == m.panelCursor {
			b.WriteString(styles.PanelCursorStyle.Render("> " + view.items[i]))
		} else {
			b.WriteString(styles.PanelItemStyle.Render("  " + view.items[i]))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.HelpStyle.Render(view.help))

	style := styles.PanelStyle.Width(max(m.width-styles.PanelStyle.GetHorizontalBorderSize(), 0))
	panel := style.Render(b.String())
	return lipgloss.PlaceVertical(m.viewport.Height, lipgloss.Top, panel)
}

// panelWindow returns the range of items shown so that cursor stays visible.
func panelWindow(cursor, n, size int) (int, int) {
	if n <= size {
		return 0, n
	}
	start := max(cursor-size/2, 0)
	start = min(start, n-size)
	return start, start + size
}
