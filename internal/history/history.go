// Package history persists the questions asked in the chat so they can be recalled.
package history

import (
	"bufio"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/malonaz/ragchat/internal/file"
)

// DefaultMaxSize is the number of questions kept when no size is given.
const DefaultMaxSize = 1000

var escaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`)
var unescaper = strings.NewReplacer(`\\`, `\`, `\n`, "\n")

// History is a bounded list of questions with a navigation cursor.
type History struct {
	mu      sync.Mutex
	path    string
	maxSize int
	entries []string
	// cursor is the index of the recalled entry, len(entries) when editing a new question.
	cursor int
	// draft holds the question being typed when navigation started.
	draft string
}

// New loads the history stored at path. An empty path keeps the history in memory only. A
// missing file is an empty history.
func New(path string, maxSize int) (*History, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	h := &History{path: path, maxSize: maxSize}
	if err := h.load(); err != nil {
		return nil, err
	}
	h.cursor = len(h.entries)
	return h, nil
}

func (h *History) load() error {
	if h.path == "" {
		return nil
	}
	f, err := os.Open(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "opening history")
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := unescaper.Replace(scanner.Text()); line != "" {
			h.entries = append(h.entries, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "reading history")
	}
	h.trim()
	return nil
}

func (h *History) trim() {
	if len(h.entries) > h.maxSize {
		h.entries = h.entries[len(h.entries)-h.maxSize:]
	}
}

// save must be called with mu held.
func (h *History) save() error {
	if h.path == "" {
		return nil
	}
	if err := file.CreateParentDirectory(h.path); err != nil {
		return errors.Wrap(err, "creating history directory")
	}
	var sb strings.Builder
	for _, entry := range h.entries {
		sb.WriteString(escaper.Replace(entry))
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(h.path, []byte(sb.String()), 0600); err != nil {
		return errors.Wrap(err, "writing history")
	}
	return nil
}

// Add records a question and resets navigation. Blank questions and repeats of the latest one
// are not recorded.
func (h *History) Add(question string) error {
	question = strings.TrimSpace(question)
	h.mu.Lock()
	defer h.mu.Unlock()
	defer h.resetLocked()

	if question == "" || (len(h.entries) > 0 && h.entries[len(h.entries)-1] == question) {
		return nil
	}
	h.entries = append(h.entries, question)
	h.trim()
	return h.save()
}

// Previous moves to the previous question. draft is the text being edited, restored when
// navigating past the newest entry. It returns false when there is nothing older.
func (h *History) Previous(draft string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cursor == 0 {
		if len(h.entries) == 0 {
			return "", false
		}
		return h.entries[0], false
	}
	if h.cursor == len(h.entries) {
		h.draft = draft
	}
	h.cursor--
	return h.entries[h.cursor], true
}

// Next moves toward the newest question, then back to the draft.
func (h *History) Next() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cursor >= len(h.entries) {
		return "", false
	}
	h.cursor++
	if h.cursor == len(h.entries) {
		return h.draft, true
	}
	return h.entries[h.cursor], true
}

// Reset ends navigation.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resetLocked()
}

func (h *History) resetLocked() {
	h.cursor = len(h.entries)
	h.draft = ""
}

// Len returns the number of recorded questions.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
