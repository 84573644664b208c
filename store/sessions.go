package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// CreateSessionRequest represents a request to create a session.
type CreateSessionRequest struct {
	Title            string
	KnowledgeBaseIDs []int64
}

// CreateSession creates a session bound to existing knowledge bases.
func (s *Store) CreateSession(req *CreateSessionRequest) (*Session, error) {
	now := s.timestamp()
	session := &Session{
		Title:             req.Title,
		KnowledgeBaseIDs:  dedupeInt64s(req.KnowledgeBaseIDs),
		CreationTimestamp: now,
		UpdateTimestamp:   now,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO sessions (title, creation_timestamp, update_timestamp)
		VALUES (?, ?, ?)`,
		session.Title, session.CreationTimestamp, session.UpdateTimestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}
	if session.ID, err = result.LastInsertId(); err != nil {
		return nil, fmt.Errorf("reading session id: %w", err)
	}
	if err := setSessionKnowledgeBases(tx, session.ID, session.KnowledgeBaseIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return session, nil
}

// GetSession returns a session with its knowledge bases and messages.
func (s *Store) GetSession(sessionID int64) (*Session, error) {
	session := &Session{}
	err := s.db.QueryRow(`
		SELECT id, title, pinned, creation_timestamp, update_timestamp
		FROM sessions
		WHERE id = ?`, sessionID,
	).Scan(&session.ID, &session.Title, &session.Pinned, &session.CreationTimestamp, &session.UpdateTimestamp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %d: %w", sessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("querying session: %w", err)
	}

	if session.KnowledgeBaseIDs, err = sessionKnowledgeBaseIDs(s.db, sessionID); err != nil {
		return nil, err
	}
	if session.Messages, err = s.ListMessages(sessionID); err != nil {
		return nil, err
	}
	return session, nil
}

// ListSessionsRequest contains parameters for listing sessions.
type ListSessionsRequest struct {
	PageSize int
}

// ListSessions returns pinned sessions first, then the most recently updated.
func (s *Store) ListSessions(req *ListSessionsRequest) ([]*SessionSummary, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 500 // Default.
	}

	rows, err := s.db.Query(`
		SELECT
			s.id,
			s.title,
			s.pinned,
			s.update_timestamp,
			(SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id),
			(
				SELECT json_group_array(name) FROM (
					SELECT kb.name AS name
					FROM session_knowledge_bases skb
					JOIN knowledge_bases kb ON kb.id = skb.knowledge_base_id
					WHERE skb.session_id = s.id
					ORDER BY skb.position
				)
			)
		FROM sessions s
		ORDER BY s.pinned DESC, s.update_timestamp DESC, s.id DESC
		LIMIT ?`, pageSize)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*SessionSummary{}
	for rows.Next() {
		session := &SessionSummary{}
		var namesJSON string
		if err := rows.Scan(&session.ID, &session.Title, &session.Pinned, &session.UpdateTimestamp, &session.MessageCount, &namesJSON); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		if err := json.Unmarshal([]byte(namesJSON), &session.KnowledgeBaseNames); err != nil {
			return nil, fmt.Errorf("unmarshaling knowledge base names: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session rows: %w", err)
	}
	return sessions, nil
}

// Fields of a session that UpdateSession can change.
const (
	SessionFieldTitle            = "title"
	SessionFieldPinned           = "pinned"
	SessionFieldKnowledgeBaseIDs = "knowledge_base_ids"
)

// UpdateSessionRequest represents a request to update the fields of a session named in UpdateMask.
type UpdateSessionRequest struct {
	Session    *Session
	UpdateMask []string
}

// UpdateSession updates a session and bumps its update timestamp.
func (s *Store) UpdateSession(req *UpdateSessionRequest) error {
	if req.Session == nil {
		return fmt.Errorf("session cannot be nil")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	req.Session.UpdateTimestamp = s.timestamp()
	result, err := tx.Exec(`UPDATE sessions SET update_timestamp = ? WHERE id = ?`, req.Session.UpdateTimestamp, req.Session.ID)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if err := checkAffected(result, fmt.Sprintf("session %d", req.Session.ID)); err != nil {
		return err
	}

	if slices.Contains(req.UpdateMask, SessionFieldTitle) {
		if _, err := tx.Exec(`UPDATE sessions SET title = ? WHERE id = ?`, req.Session.Title, req.Session.ID); err != nil {
			return fmt.Errorf("updating session title: %w", err)
		}
	}
	if slices.Contains(req.UpdateMask, SessionFieldPinned) {
		if _, err := tx.Exec(`UPDATE sessions SET pinned = ? WHERE id = ?`, req.Session.Pinned, req.Session.ID); err != nil {
			return fmt.Errorf("updating session pin: %w", err)
		}
	}
	if slices.Contains(req.UpdateMask, SessionFieldKnowledgeBaseIDs) {
		req.Session.KnowledgeBaseIDs = dedupeInt64s(req.Session.KnowledgeBaseIDs)
		if err := setSessionKnowledgeBases(tx, req.Session.ID, req.Session.KnowledgeBaseIDs); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DeleteSession removes a session with its messages.
func (s *Store) DeleteSession(sessionID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if err := checkAffected(result, fmt.Sprintf("session %d", sessionID)); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("deleting session messages: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM session_knowledge_bases WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("deleting session knowledge bases: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
