package apiclient

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTokenExpired is returned before any request is sent when the configured
// token carries an expiry in the past.
var ErrTokenExpired = errors.New("access token has expired")

// TransportError means the request never produced a response: DNS, connection
// refused, timeouts and cancellation all land here.
type TransportError struct {
	Method string
	URL    string
	Cause  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: transport error: %v", e.Method, e.URL, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// ServerError is a response the API reported as failed, or one whose body could
// not be decoded. Message is the body's "message" field when present.
type ServerError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
	RequestID  string
	Cause      error
}

func (e *ServerError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ServerError) Unwrap() error {
	return e.Cause
}

// ValidationError is raised locally before a request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", strings.ToLower(e.Field), e.Message)
}
