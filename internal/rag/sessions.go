package rag

import (
	"context"
	"fmt"
	"net/http"
)

func (c *Client) sessionURL(sessionID int64) string {
	return fmt.Sprintf("%s/sessions/%d", c.opts.BaseURL, sessionID)
}

// CreateSession creates a session over the given knowledge bases.
func (c *Client) CreateSession(ctx context.Context, request *CreateSessionRequest) (*Session, error) {
	session := &Session{}
	if err := c.do(ctx, http.MethodPost, c.opts.BaseURL+"/sessions", request, session); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return session, nil
}

// ListSessions returns every session, most recently updated first.
func (c *Client) ListSessions(ctx context.Context) ([]*SessionListItem, error) {
	var sessions []*SessionListItem
	if err := c.do(ctx, http.MethodGet, c.opts.BaseURL+"/sessions", nil, &sessions); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// GetSession returns a session with its knowledge bases and messages.
func (c *Client) GetSession(ctx context.Context, sessionID int64) (*SessionDetail, error) {
	session := &SessionDetail{}
	if err := c.do(ctx, http.MethodGet, c.sessionURL(sessionID), nil, session); err != nil {
		return nil, fmt.Errorf("getting session %d: %w", sessionID, err)
	}
	return session, nil
}

// UpdateSessionTitle renames a session.
func (c *Client) UpdateSessionTitle(ctx context.Context, sessionID int64, title string) error {
	request := &UpdateTitleRequest{Title: title}
	if err := c.do(ctx, http.MethodPut, c.sessionURL(sessionID)+"/title", request, nil); err != nil {
		return fmt.Errorf("updating title of session %d: %w", sessionID, err)
	}
	return nil
}

// UpdateSessionKnowledgeBases replaces the knowledge bases of a session.
func (c *Client) UpdateSessionKnowledgeBases(ctx context.Context, sessionID int64, knowledgeBaseIDs []int64) error {
	request := &UpdateKnowledgeBasesRequest{KnowledgeBaseIDs: knowledgeBaseIDs}
	if err := c.do(ctx, http.MethodPut, c.sessionURL(sessionID)+"/knowledge-bases", request, nil); err != nil {
		return fmt.Errorf("updating knowledge bases of session %d: %w", sessionID, err)
	}
	return nil
}

// ToggleSessionPin pins an unpinned session and unpins a pinned one. Pinned sessions are listed first.
func (c *Client) ToggleSessionPin(ctx context.Context, sessionID int64) error {
	if err := c.do(ctx, http.MethodPut, c.sessionURL(sessionID)+"/pin", nil, nil); err != nil {
		return fmt.Errorf("toggling pin of session %d: %w", sessionID, err)
	}
	return nil
}

// DeleteSession deletes a session and its messages.
func (c *Client) DeleteSession(ctx context.Context, sessionID int64) error {
	if err := c.do(ctx, http.MethodDelete, c.sessionURL(sessionID), nil, nil); err != nil {
		return fmt.Errorf("deleting session %d: %w", sessionID, err)
	}
	return nil
}
