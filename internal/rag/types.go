package rag

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CodeSuccess is the envelope code of a successful response.
const CodeSuccess = 200

// Envelope wraps every response of the service.
type Envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Time is a timestamp as the service encodes it. Besides RFC 3339, it accepts a local
// date-time without zone, which is interpreted in the local timezone.
type Time struct {
	time.Time
}

// NewTime wraps t.
func NewTime(t time.Time) Time { return Time{Time: t} }

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		t.Time = time.Time{}
		return nil
	}
	value, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("parsing time %s: %w", b, err)
	}
	if value == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("parsing time %q: unknown layout", value)
}

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// Session is a conversation bound to a set of knowledge bases.
type Session struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	KnowledgeBaseIDs []int64 `json:"knowledgeBaseIds"`
	CreatedAt        Time    `json:"createdAt"`
}

// SessionListItem is a session as it appears in the session list.
type SessionListItem struct {
	ID                 int64    `json:"id"`
	Title              string   `json:"title"`
	MessageCount       int      `json:"messageCount"`
	KnowledgeBaseNames []string `json:"knowledgeBaseNames"`
	UpdatedAt          Time     `json:"updatedAt"`
	IsPinned           bool     `json:"isPinned"`
}

// SessionDetail is a session with its knowledge bases and messages.
type SessionDetail struct {
	ID             int64            `json:"id"`
	Title          string           `json:"title"`
	KnowledgeBases []*KnowledgeBase `json:"knowledgeBases"`
	Messages       []*Message       `json:"messages"`
	CreatedAt      Time             `json:"createdAt"`
	UpdatedAt      Time             `json:"updatedAt"`
}

// KnowledgeBaseIDs returns the ids of the session's knowledge bases.
func (d *SessionDetail) KnowledgeBaseIDs() []int64 {
	ids := make([]int64, 0, len(d.KnowledgeBases))
	for _, knowledgeBase := range d.KnowledgeBases {
		ids = append(ids, knowledgeBase.ID)
	}
	return ids
}

// Message is a single chat message. ID is zero until the message is persisted.
type Message struct {
	ID        int64  `json:"id,omitempty"`
	Role      string `json:"type"`
	Content   string `json:"content"`
	CreatedAt Time   `json:"createdAt"`
}

// KnowledgeBase is a document collection questions are answered from.
type KnowledgeBase struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Category         string `json:"category,omitempty"`
	OriginalFilename string `json:"originalFilename"`
	FileSize         int64  `json:"fileSize"`
	ContentType      string `json:"contentType"`
	UploadedAt       Time   `json:"uploadedAt"`
	LastAccessedAt   Time   `json:"lastAccessedAt"`
	AccessCount      int    `json:"accessCount"`
	QuestionCount    int    `json:"questionCount"`
}

// KnowledgeBaseStats aggregates usage over all knowledge bases.
type KnowledgeBaseStats struct {
	TotalCount         int64 `json:"totalCount"`
	TotalQuestionCount int64 `json:"totalQuestionCount"`
	TotalAccessCount   int64 `json:"totalAccessCount"`
}

// CreateSessionRequest is the body of a session creation. A blank title is generated by the service.
type CreateSessionRequest struct {
	KnowledgeBaseIDs []int64 `json:"knowledgeBaseIds"`
	Title            string  `json:"title,omitempty"`
}

// UpdateTitleRequest is the body of a title update.
type UpdateTitleRequest struct {
	Title string `json:"title"`
}

// UpdateKnowledgeBasesRequest is the body of a knowledge-base update.
type UpdateKnowledgeBasesRequest struct {
	KnowledgeBaseIDs []int64 `json:"knowledgeBaseIds"`
}

// StreamMessageRequest is the body of a streamed question.
type StreamMessageRequest struct {
	Question string `json:"question"`
}
