package entities

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied means microphone access was refused. Terminal for
	// that capture attempt; never retried.
	ErrPermissionDenied = errors.New("microphone access denied")

	// ErrAuthExpired means a protected call returned 401. The session must be
	// invalidated and the user re-prompted for credentials.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrNotAuthenticated means a protected operation was attempted without a
	// valid session.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// APIError carries a non-2xx backend response. Detail is the backend's
// "detail" field verbatim when present.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("backend returned %d", e.StatusCode)
}

// Retryable reports whether the status indicates a server-side failure.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= 500
}

// DecodeError means an embedded audio payload could not be decoded. The
// textual answer is still delivered; audio is best effort.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
