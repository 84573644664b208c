package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/malonaz/ragchat/cli/tui/styles"
)

// adjustTextareaHeight resizes the textarea based on content line count.
func (m *Model) adjustTextareaHeight() {
	content := m.textarea.Value()
	lineCount := strings.Count(content, "\n") + 1
	newHeight := min(max(lineCount, styles.MinTextareaHeight), styles.MaxTextareaHeight)

	oldHeight := m.textarea.Height()
	if oldHeight != newHeight {
		m.textarea.SetHeight(newHeight)
		m.recalculateLayout()
		if m.ready {
			m.viewport.LineDown(newHeight - oldHeight)
		}
	}
}

// distanceFromBottom returns the number of content lines below the viewport.
func (m *Model) distanceFromBottom() int {
	return max(m.viewport.TotalLineCount()-m.viewport.YOffset-m.viewport.Height, 0)
}

// refreshViewport re-renders the messages, keeping the scroll offset.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages())
}

// scrollToSelectedMessage scrolls the viewport to show the selected message, unless it is
// already fully visible.
func (m *Model) scrollToSelectedMessage() {
	if m.selectedMessage < 0 || m.selectedMessage >= len(m.messageOffsets) {
		return
	}
	startLine := m.messageOffsets[m.selectedMessage]
	endLine := m.viewport.TotalLineCount()
	if m.selectedMessage+1 < len(m.messageOffsets) {
		endLine = m.messageOffsets[m.selectedMessage+1] - 1
	}

	viewportTop := m.viewport.YOffset
	viewportBottom := viewportTop + m.viewport.Height
	if startLine >= viewportTop && endLine < viewportBottom {
		return
	}
	m.viewport.SetYOffset(startLine)
}

// recalculateLayout adjusts viewport and textarea dimensions based on current state.
func (m *Model) recalculateLayout() {
	if m.width == 0 || m.height == 0 {
		return
	}

	m.titleHeight = lipgloss.Height(m.renderTitle())
	viewportHeight := m.height - m.titleHeight
	if m.streaming() {
		viewportHeight-- // Spinner line.
	} else {
		viewportHeight -= m.textarea.Height() + styles.TextAreaStyle.GetVerticalFrameSize()
	}
	if m.err != nil {
		viewportHeight -= 2
	}
	viewportHeight = max(viewportHeight, styles.MinViewportHeight)

	viewportWidth := m.width
	rendererWidth := viewportWidth - styles.MessageHorizontalFrameSize() - styles.AnswerMessageStyle.GetMarginRight()
	if rendererWidth != m.renderer.Width() {
		if err := m.renderer.SetWidth(rendererWidth); err != nil {
			log.Warn("resizing renderer", "width", rendererWidth, "error", err)
		}
	}

	if !m.ready {
		m.viewport = viewport.New(viewportWidth, viewportHeight)
		m.ready = true
		m.viewport.SetContent(m.renderMessages())
		m.viewport.GotoBottom()
	} else {
		m.viewport.Width = viewportWidth
		m.viewport.Height = viewportHeight
		m.viewport.SetContent(m.renderMessages())
	}

	m.textarea.SetWidth(viewportWidth - styles.TextAreaStyle.GetHorizontalPadding() - styles.TextAreaStyle.GetHorizontalBorderSize())
}
