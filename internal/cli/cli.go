package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/buger/goterm"
	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/pkg/errors"
)

var (
	questionColor  = color.New(color.FgWhite, color.Bold)
	answerColor    = color.New(color.FgCyan)
	infoColor      = color.New(color.FgHiBlack)
	errorColor     = color.New(color.FgRed)
	titleColor     = color.New(color.FgMagenta, color.Bold)
	separatorColor = color.New(color.FgHiBlack)
	highlightColor = color.New(color.FgYellow)
	promptColor    = color.New(color.FgHiBlue)
)

// Width of the terminal, or 80 when it cannot be determined.
func Width() int {
	if width := goterm.Width(); width > 0 {
		return width
	}
	return 80
}

// Separator printed to cli.
func Separator() {
	separatorColor.Println(strings.Repeat("-", Width()))
}

// Title printed to cli.
func Title(text string, args ...any) {
	width := Width()
	title := "      " + fmt.Sprintf(text, args...) + "      "
	titleWidth := len([]rune(title))
	leftWidth := max((width-titleWidth)/2, 0)
	rightWidth := max(width-titleWidth-leftWidth, 0)
	titleColor.Println(strings.Repeat("-", leftWidth) + title + strings.Repeat("-", rightWidth))
}

// Question printed to cli.
func Question(text string) {
	questionColor.Println("> " + text)
}

// Answer printed to cli. text is printed as is.
func Answer(text string) {
	answerColor.Print(text)
}

// Info printed to cli.
func Info(text string, args ...any) {
	infoColor.Printf(text, args...)
}

// Highlight printed to cli.
func Highlight(text string, args ...any) {
	highlightColor.Printf(text, args...)
}

// Error printed to cli.
func Error(text string, args ...any) {
	errorColor.Printf(text, args...)
}

// PromptUser reads a question. Lines are accumulated until one ends with Ctrl+J.
// Submitted questions are persisted to historyFile, when not empty.
func PromptUser(historyFile string) (string, error) {
	exit := false
	config := &readline.Config{
		Prompt:            promptColor.Sprint("> "),
		InterruptPrompt:   "^C",
		HistoryFile:       historyFile,
		HistorySearchFold: true,
		FuncFilterInputRune: func(r rune) (rune, bool) {
			if r == '\x0A' { // Ctrl + J
				exit = true
			}
			return r, true
		},
	}

	rl, err := readline.NewEx(config)
	if err != nil {
		return "", err
	}
	defer rl.Close()
	var lines []string
	for {
		line, err := rl.Readline()
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
		if exit {
			break
		}
		rl.SetPrompt("")
	}
	return strings.Join(lines, "\n"), nil
}

// QueryUser a yes/no question.
func QueryUser(question string) bool {
	surveyQuestion := &survey.Confirm{
		Message: question,
	}
	confirm := false
	survey.AskOne(surveyQuestion, &confirm)
	return confirm
}

// SelectMany lets the user pick among options, returning the indices picked.
func SelectMany(message string, options []string, defaults []int) ([]int, error) {
	prompt := &survey.MultiSelect{
		Message: message,
		Options: options,
		Default: defaults,
	}
	var selected []int
	if err := survey.AskOne(prompt, &selected); err != nil {
		return nil, err
	}
	return selected, nil
}

// ParseID parses a positive id argument.
func ParseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Errorf("invalid id %q", arg)
	}
	return id, nil
}
