// Package apierr holds the error taxonomy shared by the rag client and the stream pipeline.
//
// TransportError covers connection-level failures and non-success statuses without a structured
// body, ProtocolError covers payloads that cannot be framed or decoded, and ApplicationError
// carries a structured error reported by the service itself.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrIdleTimeout is wrapped by a TransportError when a stream stops producing bytes.
var ErrIdleTimeout = errors.New("stream idle timeout")

// ErrNoBody is wrapped by a TransportError when a response carries no readable body.
var ErrNoBody = errors.New("response body unavailable")

// TransportError is a connection-level failure or a non-success status.
type TransportError struct {
	// Op is the operation that failed ("request", "read", ...).
	Op string
	// Status is the HTTP status, 0 when no response was received.
	Status int
	// Message is a human-readable description. Defaults to Err's text.
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op + " failed"
}

func (e *TransportError) Unwrap() error { return e.Err }

// NewStatusError synthesizes the error of a non-success response whose body carried no message.
func NewStatusError(status int) *TransportError {
	return &TransportError{
		Op:      "request",
		Status:  status,
		Message: fmt.Sprintf("request failed (%d)", status),
	}
}

// ProtocolError is a malformed stream or payload.
type ProtocolError struct {
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ApplicationError is a structured error payload returned by the service.
type ApplicationError struct {
	// Status is the HTTP status of the response.
	Status int
	// Code is the service's own error code, when present.
	Code    int
	Message string
}

func (e *ApplicationError) Error() string { return e.Message }

// IsNotFound returns true if err is an application error reporting a missing resource.
func IsNotFound(err error) bool {
	var appErr *ApplicationError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Status == http.StatusNotFound || appErr.Code == http.StatusNotFound
}

// Message returns the best human-readable message carried by err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var appErr *ApplicationError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Error()
	}
	return err.Error()
}
