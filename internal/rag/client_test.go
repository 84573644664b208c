package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malonaz/ragchat/internal/apierr"
)

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func TestCreateSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/rag-chat/sessions", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))
		request := &CreateSessionRequest{}
		assert.NoError(t, decodeJSON(r, request))
		assert.Equal(t, []int64{1, 2}, request.KnowledgeBaseIDs)
		assert.Empty(t, request.Title)
		writeJSON(w, http.StatusOK, `{"code":200,"message":"success","data":{"id":9,"title":"2 个知识库对话","knowledgeBaseIds":[1,2],"createdAt":"2025-03-04T05:06:07.123"}}`)
	}))
	defer server.Close()

	session, err := newTestClient(server.URL, nil).CreateSession(context.Background(), &CreateSessionRequest{KnowledgeBaseIDs: []int64{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, int64(9), session.ID)
	assert.Equal(t, "2 个知识库对话", session.Title)
	assert.Equal(t, []int64{1, 2}, session.KnowledgeBaseIDs)
	assert.Equal(t, time.Date(2025, 3, 4, 5, 6, 7, 123000000, time.Local), session.CreatedAt.Time)
}

func TestListSessionsUnwrapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[{"id":2,"title":"b","messageCount":4,"knowledgeBaseNames":["Go"],"updatedAt":"2025-01-01T00:00:00Z"},{"id":1,"title":"a","messageCount":0,"knowledgeBaseNames":[],"updatedAt":null}]`)
	}))
	defer server.Close()

	sessions, err := newTestClient(server.URL, nil).ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, 4, sessions[0].MessageCount)
	assert.Equal(t, []string{"Go"}, sessions[0].KnowledgeBaseNames)
	assert.True(t, sessions[1].UpdatedAt.IsZero())
}

func TestGetSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/rag-chat/sessions/3", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"code":200,"data":{"id":3,"title":"t","knowledgeBases":[{"id":5,"name":"Go"}],"messages":[{"id":1,"type":"user","content":"q"},{"id":2,"type":"assistant","content":"a"}]}}`)
	}))
	defer server.Close()

	session, err := newTestClient(server.URL, nil).GetSession(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, session.KnowledgeBaseIDs())
	require.Len(t, session.Messages, 2)
	assert.Equal(t, RoleUser, session.Messages[0].Role)
	assert.Equal(t, RoleAssistant, session.Messages[1].Role)
}

func TestRequestErrors(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantNotFound bool
		wantMessage  string
	}{
		{name: "not found envelope", status: http.StatusNotFound, body: `{"code":404,"message":"会话不存在"}`, wantNotFound: true, wantMessage: "会话不存在"},
		{name: "business error with 200", status: http.StatusOK, body: `{"code":400,"message":"标题不能为空"}`, wantMessage: "标题不能为空"},
		{name: "empty body", status: http.StatusServiceUnavailable, body: ``, wantMessage: "request failed (503)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}))
			defer server.Close()

			err := newTestClient(server.URL, nil).UpdateSessionTitle(context.Background(), 3, "x")
			require.Error(t, err)
			assert.Equal(t, tt.wantNotFound, apierr.IsNotFound(err))
			assert.Equal(t, tt.wantMessage, apierr.Message(err))
		})
	}
}

func TestMalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"code":200,"data":{"id":"not a number"}}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, nil).GetSession(context.Background(), 1)
	var protocolErr *apierr.ProtocolError
	assert.ErrorAs(t, err, &protocolErr)
}

func TestUpdateSessionKnowledgeBases(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/rag-chat/sessions/4/knowledge-bases", r.URL.Path)
		request := &UpdateKnowledgeBasesRequest{}
		assert.NoError(t, decodeJSON(r, request))
		assert.Equal(t, []int64{8}, request.KnowledgeBaseIDs)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	require.NoError(t, newTestClient(server.URL, nil).UpdateSessionKnowledgeBases(context.Background(), 4, []int64{8}))
}

func TestDeleteSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/rag-chat/sessions/4", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"code":200,"message":"success","data":null}`)
	}))
	defer server.Close()

	require.NoError(t, newTestClient(server.URL, nil).DeleteSession(context.Background(), 4))
}

func TestToggleSessionPin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/rag-chat/sessions/4/pin", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"code":200,"message":"success","data":null}`)
	}))
	defer server.Close()

	require.NoError(t, newTestClient(server.URL, nil).ToggleSessionPin(context.Background(), 4))
}

func TestKnowledgeBaseEndpoints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/knowledgebase/list":
			assert.Equal(t, SortByQuestion, r.URL.Query().Get("sortBy"))
			writeJSON(w, http.StatusOK, `{"code":200,"data":[{"id":1,"name":"Go","questionCount":3,"lastAccessedAt":"2025-02-01 10:00:00"}]}`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/knowledgebase/search":
			assert.Equal(t, "go lang", r.URL.Query().Get("keyword"))
			writeJSON(w, http.StatusOK, `{"code":200,"data":[]}`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/knowledgebase/stats":
			writeJSON(w, http.StatusOK, `{"code":200,"data":{"totalCount":1,"totalQuestionCount":3,"totalAccessCount":5}}`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/knowledgebase/1":
			writeJSON(w, http.StatusOK, `{"code":200,"data":{"id":1,"name":"Go"}}`)
		case r.Method == http.MethodDelete && r.URL.Path == "/api/knowledgebase/1":
			writeJSON(w, http.StatusOK, `{"code":200}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer server.Close()

	ctx := context.Background()
	client := newTestClient(server.URL, nil)

	knowledgeBases, err := client.ListKnowledgeBases(ctx, &ListKnowledgeBasesRequest{SortBy: SortByQuestion})
	require.NoError(t, err)
	require.Len(t, knowledgeBases, 1)
	assert.Equal(t, 3, knowledgeBases[0].QuestionCount)
	assert.Equal(t, 2025, knowledgeBases[0].LastAccessedAt.Year())

	found, err := client.SearchKnowledgeBases(ctx, "go lang")
	require.NoError(t, err)
	assert.Empty(t, found)

	stats, err := client.GetKnowledgeBaseStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.TotalAccessCount)

	knowledgeBase, err := client.GetKnowledgeBase(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Go", knowledgeBase.Name)

	require.NoError(t, client.DeleteKnowledgeBase(ctx, 1))
}

func TestRequestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := newTestClient(server.URL, &Opts{RequestTimeout: 30 * time.Millisecond})
	_, err := client.ListSessions(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTimeJSON(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{input: `"2025-03-04T05:06:07Z"`, want: time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)},
		{input: `"2025-03-04T05:06:07"`, want: time.Date(2025, 3, 4, 5, 6, 7, 0, time.Local)},
		{input: `"2025-03-04T05:06:07.5"`, want: time.Date(2025, 3, 4, 5, 6, 7, 500000000, time.Local)},
		{input: `"2025-03-04 05:06:07"`, want: time.Date(2025, 3, 4, 5, 6, 7, 0, time.Local)},
		{input: `null`},
		{input: `""`},
		{input: `"yesterday"`, wantErr: true},
		{input: `12`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var got Time
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got.Time), "got %v", got.Time)
		})
	}

	data, err := json.Marshal(struct {
		At Time `json:"at"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":null}`, string(data))
}
