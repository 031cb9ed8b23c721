package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a failed remote call. It keeps whatever detail the server gave us
// so that callers can show the most specific message available.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

// Error prefers the structured server message over a generic HTTP status
// message over a generic fallback.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("request failed: %s", http.StatusText(e.StatusCode))
	}
	return "request failed: unknown error"
}

// UserMessage extracts the most specific user-facing message from any error
// returned by a Client method.
func UserMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
