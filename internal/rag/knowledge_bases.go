package rag

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Knowledge-base list orderings.
const (
	SortByTime     = "time"
	SortBySize     = "size"
	SortByAccess   = "access"
	SortByQuestion = "question"
)

// ListKnowledgeBasesRequest filters and orders the knowledge-base list.
type ListKnowledgeBasesRequest struct {
	// SortBy is one of the SortBy* orderings. Empty means most recently uploaded first.
	SortBy string
}

// ListKnowledgeBases returns the available knowledge bases.
func (c *Client) ListKnowledgeBases(ctx context.Context, request *ListKnowledgeBasesRequest) ([]*KnowledgeBase, error) {
	endpoint := c.opts.KnowledgeBaseURL + "/list"
	if request != nil && request.SortBy != "" {
		endpoint += "?" + url.Values{"sortBy": {request.SortBy}}.Encode()
	}
	var knowledgeBases []*KnowledgeBase
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &knowledgeBases); err != nil {
		return nil, fmt.Errorf("listing knowledge bases: %w", err)
	}
	return knowledgeBases, nil
}

// GetKnowledgeBase returns a single knowledge base.
func (c *Client) GetKnowledgeBase(ctx context.Context, knowledgeBaseID int64) (*KnowledgeBase, error) {
	knowledgeBase := &KnowledgeBase{}
	endpoint := fmt.Sprintf("%s/%d", c.opts.KnowledgeBaseURL, knowledgeBaseID)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, knowledgeBase); err != nil {
		return nil, fmt.Errorf("getting knowledge base %d: %w", knowledgeBaseID, err)
	}
	return knowledgeBase, nil
}

// SearchKnowledgeBases returns the knowledge bases whose name matches keyword.
func (c *Client) SearchKnowledgeBases(ctx context.Context, keyword string) ([]*KnowledgeBase, error) {
	endpoint := c.opts.KnowledgeBaseURL + "/search?" + url.Values{"keyword": {keyword}}.Encode()
	var knowledgeBases []*KnowledgeBase
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &knowledgeBases); err != nil {
		return nil, fmt.Errorf("searching knowledge bases: %w", err)
	}
	return knowledgeBases, nil
}

// GetKnowledgeBaseStats returns usage totals.
func (c *Client) GetKnowledgeBaseStats(ctx context.Context) (*KnowledgeBaseStats, error) {
	stats := &KnowledgeBaseStats{}
	if err := c.do(ctx, http.MethodGet, c.opts.KnowledgeBaseURL+"/stats", nil, stats); err != nil {
		return nil, fmt.Errorf("getting knowledge base stats: %w", err)
	}
	return stats, nil
}

// DeleteKnowledgeBase deletes a knowledge base.
func (c *Client) DeleteKnowledgeBase(ctx context.Context, knowledgeBaseID int64) error {
	endpoint := fmt.Sprintf("%s/%d", c.opts.KnowledgeBaseURL, knowledgeBaseID)
	if err := c.do(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		return fmt.Errorf("deleting knowledge base %d: %w", knowledgeBaseID, err)
	}
	return nil
}
