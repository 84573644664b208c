// Package markdown normalizes and renders assistant answers for the terminal.
package markdown

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
)

type blockKey struct {
	message string
	index   int
}

// liveBlock caches the rendering of the block that is still being streamed.
type liveBlock struct {
	key blockKey
	// Number of complete lines rendered into md.
	lines int
	md    string
}

// Renderer renders answers with glamour. Finalized answers are cached whole, completed blocks of a
// streaming answer are cached individually and its last block is re-rendered a line at a time.
// It is not safe for concurrent use.
type Renderer struct {
	term     *glamour.TermRenderer
	width    int
	messages map[string]string
	blocks   map[blockKey]string
	live     liveBlock
}

// NewRenderer returns a renderer wrapping at width.
func NewRenderer(width int) (*Renderer, error) {
	term, err := glamour.NewTermRenderer(
		glamour.WithStyles(answerStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &Renderer{
		term:     term,
		width:    width,
		messages: map[string]string{},
		blocks:   map[blockKey]string{},
	}, nil
}

// Width returns the wrap width.
func (r *Renderer) Width() int { return r.width }

// SetWidth changes the wrap width, dropping every cached rendering.
func (r *Renderer) SetWidth(width int) error {
	if r.width == width {
		return nil
	}
	renderer, err := NewRenderer(width)
	if err != nil {
		return err
	}
	*r = *renderer
	return nil
}

// Render normalizes and renders content. key identifies the message for caching. final is true
// once the message will not change anymore.
func (r *Renderer) Render(key string, content string, final bool) string {
	if md, ok := r.messages[key]; ok {
		return md
	}

	blocks := SplitBlocks(Normalize(content))
	rendered := make([]string, 0, len(blocks))
	for i, block := range blocks {
		k := blockKey{message: key, index: i}
		if md, ok := r.blocks[k]; ok {
			rendered = append(rendered, md)
			continue
		}
		if !final && i == len(blocks)-1 {
			rendered = append(rendered, r.renderLive(k, block))
			continue
		}
		md := r.renderBlock(block.Markdown())
		r.blocks[k] = md
		rendered = append(rendered, md)
	}

	md := strings.Join(rendered, "\n")
	if final {
		r.messages[key] = md
		if r.live.key.message == key {
			r.live = liveBlock{}
		}
	}
	return md
}

// Forget drops the cached renderings of the message identified by key.
func (r *Renderer) Forget(key string) {
	delete(r.messages, key)
	for k := range r.blocks {
		if k.message == key {
			delete(r.blocks, k)
		}
	}
	if r.live.key.message == key {
		r.live = liveBlock{}
	}
}

// renderLive renders the complete lines of a streaming block with glamour, and its trailing
// partial line as plain text.
func (r *Renderer) renderLive(key blockKey, block Block) string {
	if r.live.key != key {
		r.live = liveBlock{key: key}
	}
	if block.Text == "" {
		return r.live.md
	}

	lines := strings.Split(block.Text, "\n")
	complete := len(lines) - 1
	if complete > r.live.lines {
		body := strings.Join(lines[:complete], "\n")
		if block.Kind == BlockCode {
			body = Block{Kind: BlockCode, Language: block.Language, Text: body}.Markdown()
		}
		if strings.TrimSpace(body) != "" {
			r.live.md = strings.TrimSuffix(r.renderBlock(body), "\n")
		}
		r.live.lines = complete
	}

	partial := lines[len(lines)-1]
	switch {
	case partial == "":
		return r.live.md
	case r.live.md == "":
		return partial
	default:
		return r.live.md + "\n" + partial
	}
}

func (r *Renderer) renderBlock(md string) string {
	rendered, err := r.term.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(rendered, "\n")
}

// answerStyle is dracula without the margins and prefixes glamour puts around documents and code.
func answerStyle() ansi.StyleConfig {
	style := styles.DraculaStyleConfig
	zero := uint(0)
	style.Document.Margin = &zero
	style.CodeBlock.Margin = &zero
	style.CodeBlock.Indent = &zero
	style.CodeBlock.Prefix = ""
	style.CodeBlock.BlockPrefix = ""

	style.Code.Margin = &zero
	style.Code.Indent = &zero
	style.Code.Prefix = ""
	style.Code.Suffix = ""

	style.Paragraph.BlockPrefix = ""
	style.Paragraph.BlockSuffix = ""
	return style
}
