package rag

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/malonaz/ragchat/internal/apierr"
	"github.com/malonaz/ragchat/internal/stream"
)

// ErrEmptyQuestion is reported when a blank question is streamed.
var ErrEmptyQuestion = errors.New("question must not be empty")

// Handler receives the outcome of a streamed answer. OnFragment is called once per fragment,
// in order. Exactly one of OnComplete and OnError is then called, and nothing after it.
type Handler interface {
	OnFragment(text string)
	OnComplete()
	OnError(err error)
}

// HandlerFuncs adapts functions to a Handler. Nil functions are skipped.
type HandlerFuncs struct {
	Fragment func(text string)
	Complete func()
	Error    func(err error)
}

func (h HandlerFuncs) OnFragment(text string) {
	if h.Fragment != nil {
		h.Fragment(text)
	}
}

func (h HandlerFuncs) OnComplete() {
	if h.Complete != nil {
		h.Complete()
	}
}

func (h HandlerFuncs) OnError(err error) {
	if h.Error != nil {
		h.Error(err)
	}
}

// terminalGuard enforces the single terminal callback.
type terminalGuard struct {
	handler   Handler
	terminal  bool
	fragments int
}

func (g *terminalGuard) fragment(text string) {
	if g.terminal {
		return
	}
	g.fragments++
	g.handler.OnFragment(text)
}

func (g *terminalGuard) complete() {
	if g.terminal {
		return
	}
	g.terminal = true
	g.handler.OnComplete()
}

func (g *terminalGuard) fail(err error) {
	if g.terminal {
		return
	}
	g.terminal = true
	g.handler.OnError(err)
}

// StreamMessage asks question in the given session and streams the answer to handler.
// It blocks until the stream ends; callers run it on their own goroutine. At most one stream
// should be active per session. Cancelling ctx aborts the transfer and reports ctx.Err().
func (c *Client) StreamMessage(ctx context.Context, sessionID int64, question string, handler Handler) {
	guard := &terminalGuard{handler: handler}
	if strings.TrimSpace(question) == "" {
		guard.fail(ErrEmptyQuestion)
		return
	}

	requestID := uuid.NewString()
	log := log.With("request_id", requestID, "session_id", sessionID)
	start := time.Now()

	err := c.streamMessage(ctx, sessionID, question, requestID, guard)
	if err != nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		log.Debug("stream failed", "fragments", guard.fragments, "elapsed", time.Since(start), "error", err)
		guard.fail(err)
		return
	}
	log.Debug("stream completed", "fragments", guard.fragments, "elapsed", time.Since(start))
	guard.complete()
}

func (c *Client) streamMessage(ctx context.Context, sessionID int64, question, requestID string, guard *terminalGuard) error {
	url := c.sessionURL(sessionID) + "/messages/stream"
	request, err := c.newRequest(ctx, http.MethodPost, url, &StreamMessageRequest{Question: question}, requestID)
	if err != nil {
		return err
	}
	request.Header.Set("Accept", "text/event-stream")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return &apierr.TransportError{Op: "request", Err: err}
	}

	if !isSuccess(response.StatusCode) {
		defer response.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBodySize))
		return errorFromBody(response.StatusCode, data)
	}

	if response.Body == nil || response.Body == http.NoBody {
		return &apierr.TransportError{Op: "read", Status: response.StatusCode, Err: apierr.ErrNoBody}
	}

	if isJSONContent(response.Header.Get("Content-Type")) {
		defer response.Body.Close()
		return deliverEnvelope(response, guard)
	}

	return stream.Pump(ctx, response.Body, c.streamOptions(), guard.fragment)
}

// deliverEnvelope handles a stream endpoint that answered with a JSON document instead of
// an event stream. A string payload is delivered as a single fragment.
func deliverEnvelope(response *http.Response, guard *terminalGuard) error {
	data, err := io.ReadAll(io.LimitReader(response.Body, maxErrorBodySize))
	if err != nil {
		return &apierr.TransportError{Op: "read", Status: response.StatusCode, Err: err}
	}
	var payload json.RawMessage
	if err := decodePayload(response.StatusCode, data, &payload); err != nil {
		return err
	}
	var text string
	if len(payload) > 0 && json.Unmarshal(payload, &text) == nil && text != "" {
		guard.fragment(text)
	}
	return nil
}

func isJSONContent(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}
