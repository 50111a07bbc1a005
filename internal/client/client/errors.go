package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetwork wraps transport failures; the user may retry.
	ErrNetwork = errors.New("network error")
	// ErrUnauthorized is returned for 401/403 responses that cannot be fixed
	// by refreshing the token, and for wrong passphrases.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned when the backend reports the file is gone.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable is returned when a backend dependency, typically object
	// storage, is not configured or not reachable. It is not retried.
	ErrUnavailable = errors.New("service unavailable")
)

// Error codes the backend puts in error bodies.
const (
	CodeTokenExpired         = "token_expired"
	CodeStorageNotConfigured = "storage_not_configured"
)

// HTTPError is a non-2xx backend response. It unwraps to the matching
// sentinel, so errors.Is(err, ErrNotFound) works on it.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("http %d (%s): %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) Unwrap() error {
	switch {
	case e.Code == CodeStorageNotConfigured, e.StatusCode == http.StatusServiceUnavailable:
		return ErrUnavailable
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	default:
		return nil
	}
}
