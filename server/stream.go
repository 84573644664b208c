package server

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sourcegraph/conc"

	"github.com/malonaz/ragchat/internal/rag"
	"github.com/malonaz/ragchat/store"
)

const streamErrorPrefix = "【错误】回答生成失败："

// streamMessage answers a question as an event stream. The question and an empty answer are
// persisted before the first byte is sent, and the answer is completed with whatever was streamed.
func (s *Server) streamMessage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	req := &rag.StreamMessageRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		fail(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		fail(c, http.StatusBadRequest, msgQuestionRequired)
		return
	}

	session, err := s.store.GetSession(id)
	if err != nil {
		s.failFromError(c, err, msgSessionNotFound)
		return
	}
	kbs, err := s.sessionKnowledgeBases(session.KnowledgeBaseIDs)
	if err != nil {
		s.failFromError(c, err, msgSessionNotFound)
		return
	}

	messages, err := s.store.CreateMessages(&store.CreateMessagesRequest{
		SessionID: id,
		Messages: []*store.Message{
			{Role: store.RoleUser, Content: question},
			{Role: store.RoleAssistant},
		},
	})
	if err != nil {
		s.failFromError(c, err, msgSessionNotFound)
		return
	}
	answerID := messages[1].ID
	log := s.log.With("session_id", id, "message_id", answerID)
	s.recordQuestion(kbs)

	data := &AnswerData{
		Question:      question,
		SessionTitle:  session.Title,
		QuestionIndex: countUserMessages(session.Messages) + 1,
	}
	for _, kb := range kbs {
		data.KnowledgeBaseNames = append(data.KnowledgeBaseNames, kb.Name)
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	start := time.Now()
	answer, err := s.renderAnswer(data)
	if err != nil {
		log.Error("rendering answer", "error", err)
		answer = streamErrorPrefix + err.Error()
	}
	sent, err := s.writeChunks(c.Request.Context(), c.Writer, chunkRunes(answer, s.opts.ChunkRunes))
	if err != nil {
		log.Info("stream interrupted", "sent_runes", len([]rune(sent)), "error", err)
	}

	// The client may be gone, the answer is completed regardless.
	if err := s.store.UpdateMessageContent(answerID, sent); err != nil {
		log.Error("completing answer", "error", err)
		return
	}
	log.Info("stream completed", "runes", len([]rune(sent)), "elapsed", time.Since(start))
}

// writeChunks streams chunks as events, pausing between them. It returns the content written so far.
func (s *Server) writeChunks(ctx context.Context, w gin.ResponseWriter, chunks []string) (string, error) {
	var sent strings.Builder
	for i, chunk := range chunks {
		if i > 0 && s.opts.ChunkDelay > 0 {
			select {
			case <-ctx.Done():
				return sent.String(), ctx.Err()
			case <-time.After(s.opts.ChunkDelay):
			}
		}
		if err := ctx.Err(); err != nil {
			return sent.String(), err
		}
		if _, err := io.WriteString(w, encodeEvent(chunk)); err != nil {
			return sent.String(), err
		}
		w.Flush()
		sent.WriteString(chunk)
	}
	return sent.String(), nil
}

// recordQuestion counts a question against every knowledge base it was asked to.
func (s *Server) recordQuestion(kbs []*store.KnowledgeBase) {
	wg := conc.NewWaitGroup()
	for _, kb := range kbs {
		wg.Go(func() {
			if err := s.store.RecordQuestion(kb.ID); err != nil {
				s.log.Error("recording question", "knowledge_base_id", kb.ID, "error", err)
			}
		})
	}
	wg.Wait()
}

func countUserMessages(messages []*store.Message) int {
	count := 0
	for _, message := range messages {
		if message.Role == store.RoleUser {
			count++
		}
	}
	return count
}
