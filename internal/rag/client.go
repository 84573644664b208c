// Package rag is the client of the retrieval-augmented chat service.
package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/malonaz/ragchat/internal/apierr"
	"github.com/malonaz/ragchat/internal/configuration"
	"github.com/malonaz/ragchat/internal/debug"
	"github.com/malonaz/ragchat/internal/stream"
)

// RequestIDHeader carries the id a request is logged under.
const RequestIDHeader = "X-Request-Id"

// Error bodies beyond this size are not inspected.
const maxErrorBodySize = 64 << 10

var log = debug.GetLogger()

// Opts for the client.
type Opts struct {
	// BaseURL of the chat api, e.g. http://localhost:8080/api/rag-chat.
	BaseURL string
	// KnowledgeBaseURL of the knowledge-base api, e.g. http://localhost:8080/api/knowledgebase.
	KnowledgeBaseURL string
	// RequestTimeout bounds request/response calls. Streams are not bound by it.
	RequestTimeout time.Duration
	// StreamIdleTimeout aborts a stream that stops producing bytes. Zero disables it.
	StreamIdleTimeout time.Duration
	// MaxEventSize bounds a single stream event. Zero uses the stream package default.
	MaxEventSize int
	// HTTPClient overrides the default http client.
	HTTPClient *http.Client
}

// Client for the chat service.
type Client struct {
	opts       *Opts
	httpClient *http.Client
}

// NewClient instantiates and returns a new client.
func NewClient(opts *Opts) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		opts: &Opts{
			BaseURL:           strings.TrimRight(opts.BaseURL, "/"),
			KnowledgeBaseURL:  strings.TrimRight(opts.KnowledgeBaseURL, "/"),
			RequestTimeout:    opts.RequestTimeout,
			StreamIdleTimeout: opts.StreamIdleTimeout,
			MaxEventSize:      opts.MaxEventSize,
		},
		httpClient: httpClient,
	}
}

// NewClientFromConfig instantiates a client from the user's configuration.
func NewClientFromConfig(config *configuration.Config) *Client {
	return NewClient(&Opts{
		BaseURL:           config.BaseURL,
		KnowledgeBaseURL:  config.KnowledgeBaseURL,
		RequestTimeout:    config.RequestTimeoutDuration(),
		StreamIdleTimeout: config.StreamIdleTimeoutDuration(),
	})
}

func (c *Client) streamOptions() stream.Options {
	return stream.Options{
		IdleTimeout:  c.opts.StreamIdleTimeout,
		MaxEventSize: c.opts.MaxEventSize,
	}
}

func (c *Client) newRequest(ctx context.Context, method, url string, body any, requestID string) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	request, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set(RequestIDHeader, requestID)
	return request, nil
}

// do issues a request/response call and decodes the payload into out, if non-nil.
func (c *Client) do(ctx context.Context, method, url string, body, out any) error {
	if c.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.RequestTimeout)
		defer cancel()
	}

	requestID := uuid.NewString()
	request, err := c.newRequest(ctx, method, url, body, requestID)
	if err != nil {
		return err
	}

	start := time.Now()
	response, err := c.httpClient.Do(request)
	if err != nil {
		log.Debug("request failed", "request_id", requestID, "method", method, "url", url, "error", err)
		return &apierr.TransportError{Op: "request", Err: err}
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return &apierr.TransportError{Op: "read", Status: response.StatusCode, Err: err}
	}
	log.Debug("request done", "request_id", requestID, "method", method, "url", url, "status", response.StatusCode, "elapsed", time.Since(start))

	if !isSuccess(response.StatusCode) {
		return errorFromBody(response.StatusCode, data)
	}
	return decodePayload(response.StatusCode, data, out)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// errorFromBody maps a non-success response to an error. A JSON body carrying a message
// yields an ApplicationError, anything else a TransportError naming the status.
func errorFromBody(status int, data []byte) error {
	var payload struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Message != "" {
		return &apierr.ApplicationError{Status: status, Code: payload.Code, Message: payload.Message}
	}
	return apierr.NewStatusError(status)
}

// decodePayload decodes a successful body into out. Enveloped bodies are unwrapped and a
// non-success envelope code becomes an ApplicationError.
func decodePayload(status int, data []byte, out any) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	if isEnvelope(data) {
		envelope := &Envelope{}
		if err := json.Unmarshal(data, envelope); err != nil {
			return &apierr.ProtocolError{Message: "decoding response envelope", Err: err}
		}
		if envelope.Code != CodeSuccess {
			message := envelope.Message
			if message == "" {
				message = fmt.Sprintf("request failed (code %d)", envelope.Code)
			}
			return &apierr.ApplicationError{Status: status, Code: envelope.Code, Message: message}
		}
		data = envelope.Data
		if len(data) == 0 || string(data) == "null" {
			return nil
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &apierr.ProtocolError{Message: "decoding response", Err: err}
	}
	return nil
}

// isEnvelope returns true if data is a JSON object with a code field.
func isEnvelope(data []byte) bool {
	if len(data) == 0 || data[0] != '{' {
		return false
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	_, ok := probe["code"]
	return ok
}
