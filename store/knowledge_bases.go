package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Sort orders of ListKnowledgeBases. Every order is descending.
const (
	SortByTime     = "time"
	SortBySize     = "size"
	SortByAccess   = "access"
	SortByQuestion = "question"
)

var knowledgeBaseOrders = map[string]string{
	SortByTime:     "upload_timestamp DESC, id DESC",
	SortBySize:     "file_size DESC, id DESC",
	SortByAccess:   "access_count DESC, id DESC",
	SortByQuestion: "question_count DESC, id DESC",
}

const knowledgeBaseColumns = `id, name, category, original_filename, file_size, content_type,
	upload_timestamp, last_access_timestamp, access_count, question_count`

func scanKnowledgeBase(row interface{ Scan(...any) error }) (*KnowledgeBase, error) {
	kb := &KnowledgeBase{}
	err := row.Scan(&kb.ID, &kb.Name, &kb.Category, &kb.OriginalFilename, &kb.FileSize, &kb.ContentType,
		&kb.UploadTimestamp, &kb.LastAccessTimestamp, &kb.AccessCount, &kb.QuestionCount)
	if err != nil {
		return nil, err
	}
	return kb, nil
}

// CreateKnowledgeBase inserts a knowledge base, assigning its ID. A zero upload timestamp is set
// to now.
func (s *Store) CreateKnowledgeBase(kb *KnowledgeBase) (*KnowledgeBase, error) {
	if kb.UploadTimestamp == 0 {
		kb.UploadTimestamp = s.timestamp()
	}
	result, err := s.db.Exec(`
		INSERT INTO knowledge_bases (name, category, original_filename, file_size, content_type,
			upload_timestamp, last_access_timestamp, access_count, question_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		kb.Name, kb.Category, kb.OriginalFilename, kb.FileSize, kb.ContentType,
		kb.UploadTimestamp, kb.LastAccessTimestamp, kb.AccessCount, kb.QuestionCount,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting knowledge base: %w", err)
	}
	if kb.ID, err = result.LastInsertId(); err != nil {
		return nil, fmt.Errorf("reading knowledge base id: %w", err)
	}
	return kb, nil
}

// GetKnowledgeBase returns a knowledge base.
func (s *Store) GetKnowledgeBase(knowledgeBaseID int64) (*KnowledgeBase, error) {
	row := s.db.QueryRow(`SELECT `+knowledgeBaseColumns+` FROM knowledge_bases WHERE id = ?`, knowledgeBaseID)
	kb, err := scanKnowledgeBase(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("knowledge base %d: %w", knowledgeBaseID, ErrNotFound)
		}
		return nil, fmt.Errorf("querying knowledge base: %w", err)
	}
	return kb, nil
}

// ListKnowledgeBasesRequest contains parameters for listing knowledge bases.
type ListKnowledgeBasesRequest struct {
	// SortBy is one of the SortBy constants. Defaults to SortByTime.
	SortBy string
	// Keyword, when not blank, keeps knowledge bases whose name, category or filename contains it.
	Keyword string
	// IDs, when not empty, keeps only these knowledge bases.
	IDs []int64
}

// ListKnowledgeBases lists knowledge bases.
func (s *Store) ListKnowledgeBases(req *ListKnowledgeBasesRequest) ([]*KnowledgeBase, error) {
	order, ok := knowledgeBaseOrders[req.SortBy]
	if !ok {
		order = knowledgeBaseOrders[SortByTime]
	}

	var where []string
	var args []any
	if keyword := strings.TrimSpace(req.Keyword); keyword != "" {
		pattern := "%" + escapeLike(keyword) + "%"
		where = append(where, `(name LIKE ? ESCAPE '\' OR category LIKE ? ESCAPE '\' OR original_filename LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	if len(req.IDs) > 0 {
		where = append(where, "id IN ("+placeholders(len(req.IDs))+")")
		args = append(args, int64Args(req.IDs)...)
	}

	query := `SELECT ` + knowledgeBaseColumns + ` FROM knowledge_bases`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + order

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying knowledge bases: %w", err)
	}
	defer rows.Close()

	kbs := []*KnowledgeBase{}
	for rows.Next() {
		kb, err := scanKnowledgeBase(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning knowledge base row: %w", err)
		}
		kbs = append(kbs, kb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating knowledge base rows: %w", err)
	}
	return kbs, nil
}

// MissingKnowledgeBases returns the ids that match no knowledge base.
func (s *Store) MissingKnowledgeBases(ids []int64) ([]int64, error) {
	ids = dedupeInt64s(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	kbs, err := s.ListKnowledgeBases(&ListKnowledgeBasesRequest{IDs: ids})
	if err != nil {
		return nil, err
	}
	found := make(map[int64]bool, len(kbs))
	for _, kb := range kbs {
		found[kb.ID] = true
	}
	var missing []int64
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// RecordQuestion counts a question asked against a knowledge base, which is also an access.
func (s *Store) RecordQuestion(knowledgeBaseID int64) error {
	result, err := s.db.Exec(`
		UPDATE knowledge_bases
		SET question_count = question_count + 1,
			access_count = access_count + 1,
			last_access_timestamp = ?
		WHERE id = ?`,
		s.timestamp(), knowledgeBaseID,
	)
	if err != nil {
		return fmt.Errorf("recording question: %w", err)
	}
	return checkAffected(result, fmt.Sprintf("knowledge base %d", knowledgeBaseID))
}

// DeleteKnowledgeBase removes a knowledge base and detaches it from every session.
func (s *Store) DeleteKnowledgeBase(knowledgeBaseID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`DELETE FROM knowledge_bases WHERE id = ?`, knowledgeBaseID)
	if err != nil {
		return fmt.Errorf("deleting knowledge base: %w", err)
	}
	if err := checkAffected(result, fmt.Sprintf("knowledge base %d", knowledgeBaseID)); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM session_knowledge_bases WHERE knowledge_base_id = ?`, knowledgeBaseID); err != nil {
		return fmt.Errorf("detaching knowledge base: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetKnowledgeBaseStats aggregates the knowledge bases. The question total counts the questions
// stored in sessions.
func (s *Store) GetKnowledgeBaseStats() (*KnowledgeBaseStats, error) {
	stats := &KnowledgeBaseStats{}
	err := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM knowledge_bases),
			(SELECT COUNT(*) FROM messages WHERE role = ?),
			(SELECT COALESCE(SUM(access_count), 0) FROM knowledge_bases)`,
		RoleUser,
	).Scan(&stats.TotalCount, &stats.TotalQuestionCount, &stats.TotalAccessCount)
	if err != nil {
		return nil, fmt.Errorf("querying knowledge base stats: %w", err)
	}
	return stats, nil
}

// SeedKnowledgeBases inserts kbs if the store has no knowledge base yet. It returns the number
// of knowledge bases inserted.
func (s *Store) SeedKnowledgeBases(kbs []*KnowledgeBase) (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM knowledge_bases`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting knowledge bases: %w", err)
	}
	if count > 0 {
		return 0, nil
	}
	for _, kb := range kbs {
		if _, err := s.CreateKnowledgeBase(kb); err != nil {
			return 0, err
		}
	}
	return len(kbs), nil
}
