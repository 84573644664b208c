package markdown

import (
	"regexp"
	"strings"
)

// Matches fenced code. Group 1 is the language, group 2 the code.
var codeBlockRegexp = regexp.MustCompile("(?sm)^```([a-zA-Z0-9_+-]*)\\n(.*?)^```")

// BlockKind distinguishes prose from fenced code.
type BlockKind int

const (
	BlockText BlockKind = iota
	BlockCode
)

// Block is a segment of an answer.
type Block struct {
	Kind BlockKind
	// Language of a code block, "" for prose or unlabeled code.
	Language string
	// Text is the prose, or the code without its fences.
	Text string
}

// Markdown returns the block as markdown source.
func (b Block) Markdown() string {
	if b.Kind == BlockCode {
		return "```" + b.Language + "\n" + b.Text + "\n```"
	}
	return b.Text
}

// SplitBlocks splits markdown content into prose and fenced code blocks. An unterminated fence
// stays part of the trailing prose.
func SplitBlocks(content string) []Block {
	var blocks []Block
	last := 0
	for _, match := range codeBlockRegexp.FindAllStringSubmatchIndex(content, -1) {
		if match[0] > last {
			blocks = append(blocks, Block{Kind: BlockText, Text: content[last:match[0]]})
		}
		code := strings.Trim(content[match[4]:match[5]], "\n")
		blocks = append(blocks, Block{
			Kind:     BlockCode,
			Language: content[match[2]:match[3]],
			Text:     strings.ReplaceAll(code, "\t", "  "), // glamour misaligns tabs.
		})
		last = match[1]
	}
	if last < len(content) {
		blocks = append(blocks, Block{Kind: BlockText, Text: content[last:]})
	}
	return blocks
}

// LastCodeBlock returns the code of the last fenced block of content.
func LastCodeBlock(content string) (string, bool) {
	blocks := SplitBlocks(content)
	for i := len(blocks) - 1; i >= 0; i-- {
		if blocks[i].Kind == BlockCode {
			return blocks[i].Text, true
		}
	}
	return "", false
}
