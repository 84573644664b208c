package markdown

import (
	"regexp"
	"strings"
)

// rule is one rewrite applied by Normalize.
type rule struct {
	re   *regexp.Regexp
	repl string
}

// The rules run in order. RE2 has no lookahead, so a rule that must not consume the character
// following a marker captures it and writes it back.
var normalizeRules = []rule{
	// "##Title" -> "## Title".
	{regexp.MustCompile(`(?m)^(#{1,6})([^\s#])`), "$1 $2"},
	// "1.item" -> "1. item".
	{regexp.MustCompile(`(^|\n)(\s*\d+)\.(\S)`), "$1$2. $3"},
	// "-item" -> "- item". Emphasis ("**x**") and rules ("---") are left alone.
	{regexp.MustCompile(`(^|\n)(\s*[-*])([^\s*\-])`), "$1$2 $3"},
	// "text 2. item" -> "text\n\n2. item".
	{regexp.MustCompile(`([^\n\d])\s*(\d+\.\s+)`), "$1\n\n$2"},
	// "说明：- item" -> "说明：\n\n- item".
	{regexp.MustCompile(`([。！？）:：])\s*([-*])\s+`), "$1\n\n$2 "},
	// "text - item" -> "text\n\n- item".
	{regexp.MustCompile(`([^\n])\s+([-*])\s+`), "$1\n\n$2 "},
	{regexp.MustCompile(`\*\*：`), "**： "},
	// "text## Title" -> "text\n\n## Title". "C# code" is not a heading.
	{regexp.MustCompile(`([^\n#A-Za-z0-9])\s*(#{1,6}\s+[^\n]+)`), "$1\n\n$2"},
	{regexp.MustCompile(`\n{3,}`), "\n\n"},
}

var unescaper = strings.NewReplacer(`\r\n`, "\n", `\n`, "\n", `\r`, "")

// Unescape restores the newlines the answer service sends escaped.
func Unescape(text string) string {
	return unescaper.Replace(text)
}

// Normalize repairs the markdown produced by the answer service: escaped newlines are restored,
// list and heading markers get their missing space, and run-together items are split into
// separate blocks. Fenced code is only unescaped.
func Normalize(text string) string {
	text = Unescape(text)

	var sb strings.Builder
	last := 0
	for _, match := range codeBlockRegexp.FindAllStringIndex(text, -1) {
		sb.WriteString(normalizeProse(text[last:match[0]]))
		sb.WriteString(text[match[0]:match[1]])
		last = match[1]
	}
	sb.WriteString(normalizeProse(text[last:]))
	return sb.String()
}

func normalizeProse(text string) string {
	for _, r := range normalizeRules {
		text = r.re.ReplaceAllString(text, r.repl)
	}
	return text
}
