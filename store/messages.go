package store

import (
	"fmt"
)

// CreateMessagesRequest represents a request to append messages to a session.
type CreateMessagesRequest struct {
	SessionID int64
	Messages  []*Message
}

// CreateMessages appends messages to a session, assigning their IDs, and bumps the session's
// update timestamp.
func (s *Store) CreateMessages(req *CreateMessagesRequest) ([]*Message, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.timestamp()
	result, err := tx.Exec(`UPDATE sessions SET update_timestamp = ? WHERE id = ?`, now, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("updating session: %w", err)
	}
	if err := checkAffected(result, fmt.Sprintf("session %d", req.SessionID)); err != nil {
		return nil, err
	}

	for _, message := range req.Messages {
		message.SessionID = req.SessionID
		message.CreationTimestamp = now
		result, err := tx.Exec(`
			INSERT INTO messages (session_id, role, content, creation_timestamp)
			VALUES (?, ?, ?, ?)`,
			message.SessionID, message.Role, message.Content, message.CreationTimestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting message: %w", err)
		}
		if message.ID, err = result.LastInsertId(); err != nil {
			return nil, fmt.Errorf("reading message id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return req.Messages, nil
}

// UpdateMessageContent replaces the content of a message and bumps its session's update timestamp.
func (s *Store) UpdateMessageContent(messageID int64, content string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE messages SET content = ? WHERE id = ?`, content, messageID)
	if err != nil {
		return fmt.Errorf("updating message: %w", err)
	}
	if err := checkAffected(result, fmt.Sprintf("message %d", messageID)); err != nil {
		return err
	}
	_, err = tx.Exec(`
		UPDATE sessions SET update_timestamp = ?
		WHERE id = (SELECT session_id FROM messages WHERE id = ?)`,
		s.timestamp(), messageID,
	)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListMessages returns the messages of a session in creation order.
func (s *Store) ListMessages(sessionID int64) ([]*Message, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, role, content, creation_timestamp
		FROM messages
		WHERE session_id = ?
		ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	messages := []*Message{}
	for rows.Next() {
		message := &Message{}
		if err := rows.Scan(&message.ID, &message.SessionID, &message.Role, &message.Content, &message.CreationTimestamp); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}
	return messages, nil
}
