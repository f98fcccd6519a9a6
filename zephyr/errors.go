package zephyr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common errors
var (
	// ErrInvalidConfig indicates invalid client configuration
	ErrInvalidConfig = errors.New("invalid zephyr configuration")
	// ErrInvalidInput indicates a request record failed local validation
	ErrInvalidInput = errors.New("invalid input")
	// ErrPlanNotFound indicates the referenced test plan does not exist
	ErrPlanNotFound = errors.New("no such plan")
	// ErrFolderNotCreated indicates a missing folder could not be created
	ErrFolderNotCreated = errors.New("folder could not be created")
)

// AuthorizationError is returned for every 401 or 403 response.
type AuthorizationError struct {
	Method string
	URL    string
}

// Error implements the error interface
func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("client does not have permission to perform this action: %s %s", e.Method, e.URL)
}

// RemoteError represents an unexpected response from the Zephyr API
type RemoteError struct {
	StatusCode int
	Method     string
	URL        string
	Body       string
	// Message is set when the server returned error messages that were
	// extracted from the body.
	Message string
}

// Error implements the error interface
func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("zephyr API error: status %d: %s %s: %s", e.StatusCode, e.Method, e.URL, e.Message)
	}
	return fmt.Sprintf("unexpected response received from the remote server: status %d: %s %s: %s",
		e.StatusCode, e.Method, e.URL, strings.TrimSpace(e.Body))
}

// IsNotFound checks if the error indicates a not found response
func (e *RemoteError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsServerError reports whether the server failed with a 5xx status.
func (e *RemoteError) IsServerError() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// ValidationError is a 400 response whose messages could not be recovered
// from.
type ValidationError struct {
	Op       string
	Messages []string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("failed to %s", e.Op)
	}
	return fmt.Sprintf("failed to %s: %s", e.Op, strings.Join(e.Messages, ", "))
}

// IsUnauthorized reports whether err is, or wraps, an AuthorizationError.
func IsUnauthorized(err error) bool {
	var authErr *AuthorizationError
	return errors.As(err, &authErr)
}

// IsNotFound reports whether err means the requested entity does not exist.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrPlanNotFound) {
		return true
	}
	var remoteErr *RemoteError
	return errors.As(err, &remoteErr) && remoteErr.IsNotFound()
}
