package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/malonaz/ragchat/internal/rag"
	"github.com/malonaz/ragchat/store"
)

const defaultSessionTitle = "新对话"

// generateTitle names a session after its knowledge bases.
func generateTitle(knowledgeBases []*store.KnowledgeBase) string {
	switch len(knowledgeBases) {
	case 0:
		return defaultSessionTitle
	case 1:
		return knowledgeBases[0].Name
	default:
		return fmt.Sprintf("%d 个知识库对话", len(knowledgeBases))
	}
}

// sessionKnowledgeBases returns the knowledge bases with the given ids, in the same order.
func (s *Server) sessionKnowledgeBases(ids []int64) ([]*store.KnowledgeBase, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	kbs, err := s.store.ListKnowledgeBases(&store.ListKnowledgeBasesRequest{IDs: ids})
	if err != nil {
		return nil, err
	}
	return orderKnowledgeBases(ids, kbs), nil
}

// validateKnowledgeBaseIDs fails the request if ids is empty or names a missing knowledge base.
func (s *Server) validateKnowledgeBaseIDs(c *gin.Context, ids []int64) bool {
	if len(ids) == 0 {
		fail(c, http.StatusBadRequest, msgKnowledgeBaseRequired)
		return false
	}
	missing, err := s.store.MissingKnowledgeBases(ids)
	if err != nil {
		s.failFromError(c, err, msgKnowledgeBasesNotFound)
		return false
	}
	if len(missing) > 0 {
		s.log.Debug("unknown knowledge bases", "ids", missing)
		fail(c, http.StatusNotFound, msgKnowledgeBasesNotFound)
		return false
	}
	return true
}

func (s *Server) createSession(c *gin.Context) {
	req := &rag.CreateSessionRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		fail(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if !s.validateKnowledgeBaseIDs(c, req.KnowledgeBaseIDs) {
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		kbs, err := s.sessionKnowledgeBases(req.KnowledgeBaseIDs)
		if err != nil {
			s.failFromError(c, err, msgKnowledgeBasesNotFound)
			return
		}
		title = generateTitle(kbs)
	}

	session, err := s.store.CreateSession(&store.CreateSessionRequest{
		Title:            title,
		KnowledgeBaseIDs: req.KnowledgeBaseIDs,
	})
	if err != nil {
		s.failFromError(c, err, msgKnowledgeBasesNotFound)
		return
	}
	s.log.Info("session created", "session_id", session.ID, "title", session.Title)
	success(c, sessionToAPI(session))
}

func (s *Server) listSessions(c *gin.Context) {
	summaries, err := s.store.ListSessions(&store.ListSessionsRequest{})
	if err != nil {
		s.failFromError(c, err, msgSessionNotFound)
		return
	}
	items := make([]*rag.SessionListItem, 0, len(summaries))
	for _, summary := range summaries {
		items = append(items, sessionSummaryToAPI(summary))
	}
	success(c, items)
}

func (s *Server) getSession(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
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
	success(c, sessionDetailToAPI(session, kbs))
}

func (s *Server) updateSessionTitle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	req := &rag.UpdateTitleRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		fail(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		fail(c, http.StatusBadRequest, msgTitleRequired)
		return
	}
	err := s.store.UpdateSession(&store.UpdateSessionRequest{
		Session:    &store.Session{ID: id, Title: title},
		UpdateMask: []string{store.SessionFieldTitle},
	})
	if err != nil {
		s.failFromError(c, err, msgSessionNotFound)
		return
	}
	success(c, nil)
}

func (s *Server) toggleSessionPin(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	session, err := s.store.GetSession(id)
	if err != nil {
		s.failFromError(c, err, msgSessionNotFound)
		return
	}
	err = s.store.UpdateSession(&store.UpdateSessionRequest{
		Session:    &store.Session{ID: id, Pinned: !session.Pinned},
		UpdateMask: []string{store.SessionFieldPinned},
	})
	if err != nil {
		s.failFromError(c, err, msgSessionNotFound)
		return
	}
	s.log.Info("session pin toggled", "session_id", id, "pinned", !session.Pinned)
	success(c, nil)
}

func (s *Server) updateSessionKnowledgeBases(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	req := &rag.UpdateKnowledgeBasesRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		fail(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if !s.validateKnowledgeBaseIDs(c, req.KnowledgeBaseIDs) {
		return
	}
	err := s.store.UpdateSession(&store.UpdateSessionRequest{
		Session:    &store.Session{ID: id, KnowledgeBaseIDs: req.KnowledgeBaseIDs},
		UpdateMask: []string{store.SessionFieldKnowledgeBaseIDs},
	})
	if err != nil {
		s.failFromError(c, err, msgSessionNotFound)
		return
	}
	success(c, nil)
}

func (s *Server) deleteSession(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.store.DeleteSession(id); err != nil {
		s.failFromError(c, err, msgSessionNotFound)
		return
	}
	s.log.Info("session deleted", "session_id", id)
	success(c, nil)
}
