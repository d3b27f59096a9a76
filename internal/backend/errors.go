package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransport wraps network failures talking to the backend.
	ErrTransport = errors.New("backend unreachable")
	// ErrBadPayload is returned when a response body cannot be decoded or
	// lacks required fields.
	ErrBadPayload = errors.New("unexpected backend payload")
	// ErrNotFound matches any APIError with status 404.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized matches any APIError with status 401 or 403.
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// Is lets callers match on status classes with errors.Is.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	}
	return false
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// UserMessage returns the backend's own message for err when it sent one,
// otherwise fallback.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
