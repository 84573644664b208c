package server

import (
	"github.com/gin-gonic/gin"

	"github.com/malonaz/ragchat/internal/rag"
	"github.com/malonaz/ragchat/store"
)

func (s *Server) listKnowledgeBases(c *gin.Context) {
	kbs, err := s.store.ListKnowledgeBases(&store.ListKnowledgeBasesRequest{SortBy: c.Query("sortBy")})
	if err != nil {
		s.failFromError(c, err, msgKnowledgeBaseNotFound)
		return
	}
	success(c, knowledgeBasesToAPI(kbs))
}

// searchKnowledgeBases lists every knowledge base when the keyword is blank.
func (s *Server) searchKnowledgeBases(c *gin.Context) {
	kbs, err := s.store.ListKnowledgeBases(&store.ListKnowledgeBasesRequest{Keyword: c.Query("keyword")})
	if err != nil {
		s.failFromError(c, err, msgKnowledgeBaseNotFound)
		return
	}
	success(c, knowledgeBasesToAPI(kbs))
}

func (s *Server) getKnowledgeBaseStats(c *gin.Context) {
	stats, err := s.store.GetKnowledgeBaseStats()
	if err != nil {
		s.failFromError(c, err, msgKnowledgeBaseNotFound)
		return
	}
	success(c, &rag.KnowledgeBaseStats{
		TotalCount:         stats.TotalCount,
		TotalQuestionCount: stats.TotalQuestionCount,
		TotalAccessCount:   stats.TotalAccessCount,
	})
}

func (s *Server) getKnowledgeBase(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	kb, err := s.store.GetKnowledgeBase(id)
	if err != nil {
		s.failFromError(c, err, msgKnowledgeBaseNotFound)
		return
	}
	success(c, knowledgeBaseToAPI(kb))
}

func (s *Server) deleteKnowledgeBase(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.store.DeleteKnowledgeBase(id); err != nil {
		s.failFromError(c, err, msgKnowledgeBaseNotFound)
		return
	}
	s.log.Info("knowledge base deleted", "knowledge_base_id", id)
	success(c, nil)
}
