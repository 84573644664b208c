package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malonaz/ragchat/internal/apierr"
	"github.com/malonaz/ragchat/internal/rag"
	"github.com/malonaz/ragchat/store"
)

const testAnswerTemplate = `{{ .KnowledgeBaseNames | join "," }}|{{ .Question | upper }}|{{ .QuestionIndex }}
{{ .SessionTitle }}`

type testEnv struct {
	server *Server
	store  *store.Store
	client *rag.Client
	url    string
	kbIDs  []int64
}

func newTestEnv(t *testing.T, opts *Options) *testEnv {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	var kbIDs []int64
	for _, kb := range []*store.KnowledgeBase{
		{Name: "Go", FileSize: 10},
		{Name: "SQL", FileSize: 30, Category: "数据库"},
	} {
		created, err := s.CreateKnowledgeBase(kb)
		require.NoError(t, err)
		kbIDs = append(kbIDs, created.ID)
	}

	if opts == nil {
		opts = &Options{}
	}
	if opts.AnswerTemplate == "" {
		opts.AnswerTemplate = testAnswerTemplate
	}
	if opts.ChunkRunes == 0 {
		opts.ChunkRunes = 3
	}
	server, err := New(s, opts)
	require.NoError(t, err)

	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(httpServer.Close)

	client := rag.NewClient(&rag.Opts{
		BaseURL:           httpServer.URL + "/api/rag-chat",
		KnowledgeBaseURL:  httpServer.URL + "/api/knowledgebase",
		RequestTimeout:    5 * time.Second,
		StreamIdleTimeout: 5 * time.Second,
	})
	return &testEnv{server: server, store: s, client: client, url: httpServer.URL, kbIDs: kbIDs}
}

type streamResult struct {
	fragments []string
	completed bool
	err       error
}

func (e *testEnv) stream(ctx context.Context, sessionID int64, question string) *streamResult {
	result := &streamResult{}
	e.client.StreamMessage(ctx, sessionID, question, rag.HandlerFuncs{
		Fragment: func(text string) { result.fragments = append(result.fragments, text) },
		Complete: func() { result.completed = true },
		Error:    func(err error) { result.err = err },
	})
	return result
}

func TestSessionEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	single, err := env.client.CreateSession(ctx, &rag.CreateSessionRequest{KnowledgeBaseIDs: env.kbIDs[:1]})
	require.NoError(t, err)
	assert.Equal(t, "Go", single.Title)
	assert.False(t, single.CreatedAt.IsZero())

	multi, err := env.client.CreateSession(ctx, &rag.CreateSessionRequest{KnowledgeBaseIDs: []int64{env.kbIDs[1], env.kbIDs[0]}})
	require.NoError(t, err)
	assert.Equal(t, "2 个知识库对话", multi.Title)

	named, err := env.client.CreateSession(ctx, &rag.CreateSessionRequest{KnowledgeBaseIDs: env.kbIDs, Title: " named "})
	require.NoError(t, err)
	assert.Equal(t, "named", named.Title)

	detail, err := env.client.GetSession(ctx, multi.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{env.kbIDs[1], env.kbIDs[0]}, detail.KnowledgeBaseIDs())
	assert.Empty(t, detail.Messages)

	require.NoError(t, env.client.UpdateSessionTitle(ctx, single.ID, "renamed"))
	require.NoError(t, env.client.UpdateSessionKnowledgeBases(ctx, single.ID, env.kbIDs))
	detail, err = env.client.GetSession(ctx, single.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", detail.Title)
	assert.Equal(t, env.kbIDs, detail.KnowledgeBaseIDs())

	// The most recently updated session comes first, unless another one is pinned.
	sessions, err := env.client.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, single.ID, sessions[0].ID)
	assert.Equal(t, []string{"Go", "SQL"}, sessions[0].KnowledgeBaseNames)

	require.NoError(t, env.client.ToggleSessionPin(ctx, multi.ID))
	sessions, err = env.client.ListSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, multi.ID, sessions[0].ID)
	assert.True(t, sessions[0].IsPinned)

	require.NoError(t, env.client.ToggleSessionPin(ctx, multi.ID))
	sessions, err = env.client.ListSessions(ctx)
	require.NoError(t, err)
	for _, session := range sessions {
		assert.False(t, session.IsPinned)
	}

	require.NoError(t, env.client.DeleteSession(ctx, named.ID))
	_, err = env.client.GetSession(ctx, named.ID)
	assert.True(t, apierr.IsNotFound(err))
	assert.Equal(t, msgSessionNotFound, apierr.Message(err))
}

func TestSessionValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.client.CreateSession(ctx, &rag.CreateSessionRequest{KnowledgeBaseIDs: []int64{env.kbIDs[0], 999}})
	assert.True(t, apierr.IsNotFound(err))
	assert.Equal(t, msgKnowledgeBasesNotFound, apierr.Message(err))

	_, err = env.client.CreateSession(ctx, &rag.CreateSessionRequest{})
	var appErr *apierr.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, msgKnowledgeBaseRequired, appErr.Message)

	session, err := env.client.CreateSession(ctx, &rag.CreateSessionRequest{KnowledgeBaseIDs: env.kbIDs})
	require.NoError(t, err)

	err = env.client.UpdateSessionTitle(ctx, session.ID, "  ")
	assert.Equal(t, msgTitleRequired, apierr.Message(err))

	err = env.client.UpdateSessionKnowledgeBases(ctx, session.ID, []int64{999})
	assert.True(t, apierr.IsNotFound(err))

	assert.True(t, apierr.IsNotFound(env.client.UpdateSessionTitle(ctx, 999, "x")))
	assert.True(t, apierr.IsNotFound(env.client.ToggleSessionPin(ctx, 999)))
	assert.True(t, apierr.IsNotFound(env.client.DeleteSession(ctx, 999)))

	response, err := http.Get(env.url + "/api/rag-chat/sessions/abc")
	require.NoError(t, err)
	response.Body.Close()
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)

	response, err = http.Post(env.url+"/api/rag-chat/sessions/1/messages/stream", "application/json", strings.NewReader(`{"question":"  "}`))
	require.NoError(t, err)
	response.Body.Close()
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
}

func TestStreamMessage(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	session, err := env.client.CreateSession(ctx, &rag.CreateSessionRequest{KnowledgeBaseIDs: env.kbIDs, Title: "t"})
	require.NoError(t, err)

	result := env.stream(ctx, session.ID, "why?")
	require.NoError(t, result.err)
	assert.True(t, result.completed)
	assert.Greater(t, len(result.fragments), 1)
	// Line breaks travel escaped.
	assert.Equal(t, `Go,SQL|WHY?|1\nt`, strings.Join(result.fragments, ""))

	result = env.stream(ctx, session.ID, "again")
	require.NoError(t, result.err)
	assert.Equal(t, `Go,SQL|AGAIN|2\nt`, strings.Join(result.fragments, ""))

	detail, err := env.client.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, detail.Messages, 4)
	assert.Equal(t, rag.RoleUser, detail.Messages[0].Role)
	assert.Equal(t, "why?", detail.Messages[0].Content)
	assert.Equal(t, rag.RoleAssistant, detail.Messages[1].Role)
	assert.Equal(t, "Go,SQL|WHY?|1\nt", detail.Messages[1].Content)

	for _, id := range env.kbIDs {
		kb, err := env.client.GetKnowledgeBase(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 2, kb.QuestionCount)
		assert.False(t, kb.LastAccessedAt.IsZero())
	}

	result = env.stream(ctx, 999, "q")
	assert.True(t, apierr.IsNotFound(result.err))
	assert.False(t, result.completed)
}

func TestStreamMessageKeepsLeadingSpaces(t *testing.T) {
	env := newTestEnv(t, &Options{AnswerTemplate: "ab cd  ef gh ", ChunkRunes: 2})
	ctx := context.Background()
	session, err := env.client.CreateSession(ctx, &rag.CreateSessionRequest{KnowledgeBaseIDs: env.kbIDs, Title: "t"})
	require.NoError(t, err)

	result := env.stream(ctx, session.ID, "q")
	require.NoError(t, result.err)
	assert.True(t, result.completed)
	// Chunks " c", " e" and " " start with a space.
	assert.Contains(t, result.fragments, " c")
	assert.Contains(t, result.fragments, " ")

	detail, err := env.client.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, detail.Messages, 2)
	assert.Equal(t, "ab cd  ef gh ", detail.Messages[1].Content)
	assert.Equal(t, detail.Messages[1].Content, strings.Join(result.fragments, ""))
}

func TestStreamMessageWithoutKnowledgeBases(t *testing.T) {
	env := newTestEnv(t, nil)
	session, err := env.store.CreateSession(&store.CreateSessionRequest{Title: "empty"})
	require.NoError(t, err)

	result := env.stream(context.Background(), session.ID, "anything")
	require.NoError(t, result.err)
	assert.Equal(t, NoResultAnswer, strings.Join(result.fragments, ""))
}

func TestStreamMessageClientGone(t *testing.T) {
	env := newTestEnv(t, &Options{ChunkRunes: 1, ChunkDelay: 20 * time.Millisecond})
	session, err := env.client.CreateSession(context.Background(), &rag.CreateSessionRequest{KnowledgeBaseIDs: env.kbIDs, Title: "t"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	var streamErr error
	env.client.StreamMessage(ctx, session.ID, "question", rag.HandlerFuncs{
		Fragment: func(string) { once.Do(cancel) },
		Error:    func(err error) { streamErr = err },
	})
	assert.ErrorIs(t, streamErr, context.Canceled)

	// The partial answer is persisted once the server notices the disconnect.
	full := "Go,SQL|QUESTION|1\nt"
	require.Eventually(t, func() bool {
		messages, err := env.store.ListMessages(session.ID)
		if err != nil || len(messages) != 2 {
			return false
		}
		content := messages[1].Content
		return content != "" && content != full && strings.HasPrefix(full, content)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestKnowledgeBaseEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	kbs, err := env.client.ListKnowledgeBases(ctx, nil)
	require.NoError(t, err)
	require.Len(t, kbs, 2)
	assert.Equal(t, "SQL", kbs[0].Name)

	kbs, err = env.client.ListKnowledgeBases(ctx, &rag.ListKnowledgeBasesRequest{SortBy: rag.SortBySize})
	require.NoError(t, err)
	assert.Equal(t, "SQL", kbs[0].Name)
	assert.Equal(t, int64(30), kbs[0].FileSize)

	kbs, err = env.client.SearchKnowledgeBases(ctx, "数据")
	require.NoError(t, err)
	require.Len(t, kbs, 1)
	assert.Equal(t, "SQL", kbs[0].Name)

	stats, err := env.client.GetKnowledgeBaseStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalCount)

	_, err = env.client.GetKnowledgeBase(ctx, 999)
	assert.Equal(t, msgKnowledgeBaseNotFound, apierr.Message(err))

	require.NoError(t, env.client.DeleteKnowledgeBase(ctx, env.kbIDs[0]))
	assert.True(t, apierr.IsNotFound(env.client.DeleteKnowledgeBase(ctx, env.kbIDs[0])))
}

func TestChunkRunes(t *testing.T) {
	assert.Equal(t, []string{"知识", "库a", "b"}, chunkRunes("知识库ab", 2))
	assert.Equal(t, []string{"abc"}, chunkRunes("abc", 10))
	assert.Empty(t, chunkRunes("", 3))
}

func TestEncodeEvent(t *testing.T) {
	assert.Equal(t, "data: a\\nb\\r\n\n", encodeEvent("a\nb\r"))
	assert.Equal(t, "data:  cd\n\n", encodeEvent(" cd"))
	assert.Equal(t, "data: \n\n", encodeEvent(""))
	// Backslashes pass through unescaped.
	assert.Equal(t, "data: a\\b\n\n", encodeEvent(`a\b`))
}

func TestGenerateTitle(t *testing.T) {
	assert.Equal(t, defaultSessionTitle, generateTitle(nil))
	assert.Equal(t, "Go", generateTitle([]*store.KnowledgeBase{{Name: "Go"}}))
	assert.Equal(t, "3 个知识库对话", generateTitle(make([]*store.KnowledgeBase, 3)))
}
