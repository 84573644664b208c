package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "escaped newline", input: `第一行\n第二行`, want: "第一行\n第二行"},
		{name: "escaped carriage return", input: `a\r\nb`, want: "a\nb"},
		{name: "heading space", input: "##标题", want: "## 标题"},
		{name: "numbered item space", input: "1.第一", want: "1. 第一"},
		{name: "bullet space", input: "-项目", want: "- 项目"},
		{name: "emphasis untouched", input: "**粗体**", want: "**粗体**"},
		{name: "colon after emphasis", input: "**粗体**：说明", want: "**粗体**： 说明"},
		{name: "collapse blank lines", input: "a\n\n\n\nb", want: "a\n\nb"},
		{name: "inline list after colon", input: "介绍：- 一 - 二", want: "介绍：\n\n- 一\n\n- 二"},
		{name: "inline numbered list", input: "步骤 1. 安装 2. 运行", want: "步骤\n\n1. 安装\n\n2. 运行"},
		{name: "run-together heading", input: "内容## 小结", want: "内容\n\n## 小结"},
		{name: "csharp is not a heading", input: "C# 很好", want: "C# 很好"},
		{name: "heading then list", input: "##标题\n-项目", want: "## 标题\n\n- 项目"},
		{name: "code is not rewritten", input: "看：\n```go\nx := a - b\n```\n", want: "看：\n```go\nx := a - b\n```\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestSplitBlocks(t *testing.T) {
	content := "intro\n```go\nfunc main() {\n\tprintln()\n}\n```\noutro\n```\nplain\n```"
	blocks := SplitBlocks(content)
	require.Len(t, blocks, 4)

	assert.Equal(t, Block{Kind: BlockText, Text: "intro\n"}, blocks[0])
	assert.Equal(t, Block{Kind: BlockCode, Language: "go", Text: "func main() {\n  println()\n}"}, blocks[1])
	assert.Equal(t, Block{Kind: BlockText, Text: "\noutro\n"}, blocks[2])
	assert.Equal(t, Block{Kind: BlockCode, Text: "plain"}, blocks[3])
	assert.Equal(t, "```go\nfunc main() {\n  println()\n}\n```", blocks[1].Markdown())

	assert.Empty(t, SplitBlocks(""))
	assert.Equal(t, []Block{{Kind: BlockText, Text: "```go\nopen"}}, SplitBlocks("```go\nopen"))
}

func TestLastCodeBlock(t *testing.T) {
	code, ok := LastCodeBlock("a\n```sh\nls\n```\nb\n```sh\npwd\n```")
	require.True(t, ok)
	assert.Equal(t, "pwd", code)

	_, ok = LastCodeBlock("no code")
	assert.False(t, ok)
}

func TestRendererIncremental(t *testing.T) {
	renderer, err := NewRenderer(80)
	require.NoError(t, err)

	// The trailing partial line is shown as typed.
	assert.Equal(t, "Hel", renderer.Render("m1", "Hel", false))

	partial := renderer.Render("m1", "Hello\nWor", false)
	assert.Contains(t, partial, "Hello")
	assert.True(t, strings.HasSuffix(partial, "Wor"))

	final := renderer.Render("m1", "Hello\nWorld", true)
	assert.Contains(t, final, "World")
	// Finalized renderings are cached by key.
	assert.Equal(t, final, renderer.Render("m1", "ignored", true))

	renderer.Forget("m1")
	assert.Contains(t, renderer.Render("m1", "other", true), "other")
}

func TestRendererSetWidth(t *testing.T) {
	renderer, err := NewRenderer(40)
	require.NoError(t, err)
	renderer.Render("m1", "cached", true)

	require.NoError(t, renderer.SetWidth(60))
	assert.Equal(t, 60, renderer.Width())
	assert.Contains(t, renderer.Render("m1", "fresh", true), "fresh")
}
