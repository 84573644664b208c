package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malonaz/ragchat/internal/rag"
)

func TestAnswerPrinterRestoresSplitEscapes(t *testing.T) {
	var out strings.Builder
	p := &answerPrinter{out: func(text string) { out.WriteString(text) }}

	p.write(`第一行\`)
	assert.Equal(t, "第一行", out.String())
	p.write(`n第二行\r\n`)
	p.write(`第三行`)
	p.flush()
	assert.Equal(t, "第一行\n第二行\n第三行", out.String())
}

func TestAnswerPrinterFlushesTrailingBackslash(t *testing.T) {
	var out strings.Builder
	p := &answerPrinter{out: func(text string) { out.WriteString(text) }}

	p.write(`a\`)
	p.flush()
	assert.Equal(t, `a\`, out.String())
	p.flush()
	assert.Equal(t, `a\`, out.String())
}

func TestAnswerPrinterPrintsOnlyNewText(t *testing.T) {
	var out strings.Builder
	var writes []string
	p := &answerPrinter{out: func(text string) {
		writes = append(writes, text)
		out.WriteString(text)
	}}

	raw := strings.Repeat(`line\n`, 200)
	for i := 0; i < len(raw); i += 5 {
		p.write(raw[i:min(i+5, len(raw))])
		assert.LessOrEqual(t, len(p.pending), 1)
	}
	p.flush()

	assert.Equal(t, strings.Repeat("line\n", 200), out.String())
	assert.Equal(t, out.Len(), p.printed)
	for _, w := range writes {
		assert.NotEmpty(t, w)
	}
}

func TestEscapeBoundary(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{raw: "", want: 0},
		{raw: "abc", want: 3},
		{raw: `ab\`, want: 2},
		{raw: `ab\n`, want: 4},
		{raw: `a\\`, want: 3},
		{raw: `a\\\`, want: 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeBoundary(tt.raw), tt.raw)
	}
}

type fakeAskClient struct {
	knowledgeBases []*rag.KnowledgeBase
	err            error
}

func (c *fakeAskClient) ListKnowledgeBases(context.Context, *rag.ListKnowledgeBasesRequest) ([]*rag.KnowledgeBase, error) {
	return c.knowledgeBases, c.err
}

func (c *fakeAskClient) GetSession(context.Context, int64) (*rag.SessionDetail, error) {
	return nil, c.err
}

func (c *fakeAskClient) CreateSession(context.Context, *rag.CreateSessionRequest) (*rag.Session, error) {
	return nil, c.err
}

func (c *fakeAskClient) StreamMessage(_ context.Context, _ int64, _ string, handler rag.Handler) {
	handler.OnError(c.err)
}

func TestSelectKnowledgeBasesWithoutAny(t *testing.T) {
	_, err := selectKnowledgeBases(context.Background(), &fakeAskClient{})
	require.Error(t, err)

	listErr := errors.New("boom")
	_, err = selectKnowledgeBases(context.Background(), &fakeAskClient{err: listErr})
	require.ErrorIs(t, err, listErr)
}
