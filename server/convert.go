package server

import (
	"time"

	"github.com/malonaz/ragchat/internal/rag"
	"github.com/malonaz/ragchat/store"
)

func timeFromMicros(ts int64) rag.Time {
	if ts == 0 {
		return rag.Time{}
	}
	return rag.NewTime(time.UnixMicro(ts))
}

func sessionToAPI(session *store.Session) *rag.Session {
	return &rag.Session{
		ID:               session.ID,
		Title:            session.Title,
		KnowledgeBaseIDs: session.KnowledgeBaseIDs,
		CreatedAt:        timeFromMicros(session.CreationTimestamp),
	}
}

func sessionSummaryToAPI(summary *store.SessionSummary) *rag.SessionListItem {
	names := summary.KnowledgeBaseNames
	if names == nil {
		names = []string{}
	}
	return &rag.SessionListItem{
		ID:                 summary.ID,
		Title:              summary.Title,
		MessageCount:       int(summary.MessageCount),
		KnowledgeBaseNames: names,
		UpdatedAt:          timeFromMicros(summary.UpdateTimestamp),
		IsPinned:           summary.Pinned,
	}
}

// sessionDetailToAPI assembles a session detail. knowledgeBases are ordered as the session lists them.
func sessionDetailToAPI(session *store.Session, knowledgeBases []*store.KnowledgeBase) *rag.SessionDetail {
	detail := &rag.SessionDetail{
		ID:             session.ID,
		Title:          session.Title,
		KnowledgeBases: make([]*rag.KnowledgeBase, 0, len(knowledgeBases)),
		Messages:       make([]*rag.Message, 0, len(session.Messages)),
		CreatedAt:      timeFromMicros(session.CreationTimestamp),
		UpdatedAt:      timeFromMicros(session.UpdateTimestamp),
	}
	for _, kb := range knowledgeBases {
		detail.KnowledgeBases = append(detail.KnowledgeBases, knowledgeBaseToAPI(kb))
	}
	for _, message := range session.Messages {
		detail.Messages = append(detail.Messages, &rag.Message{
			ID:        message.ID,
			Role:      message.Role,
			Content:   message.Content,
			CreatedAt: timeFromMicros(message.CreationTimestamp),
		})
	}
	return detail
}

func knowledgeBaseToAPI(kb *store.KnowledgeBase) *rag.KnowledgeBase {
	return &rag.KnowledgeBase{
		ID:               kb.ID,
		Name:             kb.Name,
		Category:         kb.Category,
		OriginalFilename: kb.OriginalFilename,
		FileSize:         kb.FileSize,
		ContentType:      kb.ContentType,
		UploadedAt:       timeFromMicros(kb.UploadTimestamp),
		LastAccessedAt:   timeFromMicros(kb.LastAccessTimestamp),
		AccessCount:      int(kb.AccessCount),
		QuestionCount:    int(kb.QuestionCount),
	}
}

func knowledgeBasesToAPI(kbs []*store.KnowledgeBase) []*rag.KnowledgeBase {
	result := make([]*rag.KnowledgeBase, 0, len(kbs))
	for _, kb := range kbs {
		result = append(result, knowledgeBaseToAPI(kb))
	}
	return result
}

// orderKnowledgeBases returns kbs in the order of ids, skipping ids without a match.
func orderKnowledgeBases(ids []int64, kbs []*store.KnowledgeBase) []*store.KnowledgeBase {
	byID := make(map[int64]*store.KnowledgeBase, len(kbs))
	for _, kb := range kbs {
		byID[kb.ID] = kb
	}
	ordered := make([]*store.KnowledgeBase, 0, len(ids))
	for _, id := range ids {
		if kb, ok := byID[id]; ok {
			ordered = append(ordered, kb)
		}
	}
	return ordered
}
