package store

// Roles of a message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session is a conversation bound to knowledge bases.
type Session struct {
	ID                int64
	Title             string
	Pinned            bool
	KnowledgeBaseIDs  []int64
	CreationTimestamp int64
	UpdateTimestamp   int64
	// Messages is only populated by GetSession.
	Messages []*Message
}

// SessionSummary is a session as listed.
type SessionSummary struct {
	ID                 int64
	Title              string
	Pinned             bool
	MessageCount       int64
	KnowledgeBaseNames []string
	UpdateTimestamp    int64
}

// Message of a session.
type Message struct {
	ID                int64
	SessionID         int64
	Role              string
	Content           string
	CreationTimestamp int64
}

// KnowledgeBase is an uploaded document questions are answered from.
type KnowledgeBase struct {
	ID                  int64
	Name                string
	Category            string
	OriginalFilename    string
	FileSize            int64
	ContentType         string
	UploadTimestamp     int64
	LastAccessTimestamp int64
	AccessCount         int64
	QuestionCount       int64
}

// KnowledgeBaseStats aggregates the knowledge bases.
type KnowledgeBaseStats struct {
	TotalCount         int64
	TotalQuestionCount int64
	TotalAccessCount   int64
}
