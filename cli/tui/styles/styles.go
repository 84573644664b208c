package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Layout constants
const (
	// Textarea
	MinTextareaHeight    = 3
	MaxTextareaHeight    = 12
	DefaultTextareaWidth = 80
	TextAreaPaddingLeft  = 1

	// Viewport
	MinViewportHeight = 1

	MessagePaddingLeft = 2

	// Panels
	PanelPaddingHorizontal = 2
	PanelMaxItems          = 15

	// Truncation
	TruncateLength = 40
	TruncateSuffix = "..."
)

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#7C3AED") // Purple
	SecondaryColor = lipgloss.Color("#06B6D4") // Cyan
	AccentColor    = lipgloss.Color("#F59E0B") // Amber
	SuccessColor   = lipgloss.Color("#10B981") // Green
	ErrorColor     = lipgloss.Color("#EF4444") // Red
	MutedColor     = lipgloss.Color("#6B7280") // Gray
	TextColor      = lipgloss.Color("#F9FAFB")
	DimTextColor   = lipgloss.Color("#9CA3AF")
	SelectedColor  = lipgloss.Color("#10B981")
)

// Title bar
var (
	TitleStyle = lipgloss.NewStyle().
			Background(PrimaryColor).
			Foreground(TextColor).
			Bold(true)
)

// Messages.
var (
	messageStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder())

	UserMessageStyle = lipgloss.NewStyle().
				Inherit(messageStyle).
				BorderForeground(PrimaryColor).
				MarginLeft(10)

	AnswerMessageStyle = lipgloss.NewStyle().
				Inherit(messageStyle).
				BorderForeground(SecondaryColor).
				MarginRight(10)

	MessageErrorStyle = lipgloss.NewStyle().
				Foreground(ErrorColor).
				Italic(true).
				PaddingLeft(MessagePaddingLeft)

	MessageInterruptStyle = lipgloss.NewStyle().
				Foreground(AccentColor).
				Italic(true).
				PaddingLeft(MessagePaddingLeft)

	CursorStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)

	EmptyStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true).
			PaddingLeft(MessagePaddingLeft)
)

// Panels
var (
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(AccentColor).
			Padding(0, PanelPaddingHorizontal)

	PanelTitleStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Bold(true)

	PanelItemStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	PanelCursorStyle = lipgloss.NewStyle().
				Foreground(SelectedColor).
				Bold(true)

	DimTextStyle = lipgloss.NewStyle().
			Foreground(DimTextColor)
)

// Error
var (
	ErrorStyle = lipgloss.NewStyle().
		Foreground(ErrorColor).
		Bold(true)
)

// Input area
var (
	TextAreaStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		PaddingLeft(TextAreaPaddingLeft)
)

// Spinner
var (
	SpinnerStyle = lipgloss.NewStyle().
		Foreground(SecondaryColor)
)

// Help text
var (
	HelpStyle = lipgloss.NewStyle().
		Foreground(MutedColor).
		Italic(true)
)

// Viewport
var (
	ViewportStyle = lipgloss.NewStyle().Margin(0).Padding(0)
)

// MessageHorizontalFrameSize returns the horizontal frame size of answers.
func MessageHorizontalFrameSize() int {
	return AnswerMessageStyle.GetHorizontalFrameSize()
}

// Selected returns style with its border highlighted.
func Selected(style lipgloss.Style) lipgloss.Style {
	return style.BorderForeground(SelectedColor)
}

// Truncate truncates s to maxLen runes with a suffix.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	suffix := []rune(TruncateSuffix)
	return string(runes[:maxLen-len(suffix)]) + TruncateSuffix
}
