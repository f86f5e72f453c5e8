package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrTurnInFlight is returned when a submission arrives while a previous
	// turn is still submitting or streaming.
	ErrTurnInFlight = errors.New("a turn is already in flight")

	// ErrEmptyMessage is returned for empty or whitespace-only submissions.
	ErrEmptyMessage = errors.New("message must not be empty")
)

// APIStatusError reports a non-2xx response from a remote collaborator.
type APIStatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIStatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("API error: %d - %s: %s", e.StatusCode, e.Status, e.Body)
	}
	return fmt.Sprintf("API error: %d - %s", e.StatusCode, e.Status)
}

// NetworkError reports a connection-level failure talking to a remote
// collaborator.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
