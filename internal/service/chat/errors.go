package chat

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyMessage    = errors.New("message content is required")
	ErrNotReady        = errors.New("session is not ready for a new message")
	ErrSessionNotFound = errors.New("session not found")
)

// InitError means the session or assistant handle could not be obtained.
// The session stays unavailable until Reset.
type InitError struct {
	Err error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("unable to initialize chat: %v", e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// TurnError means a submitted turn's round trip failed. The transcript up to
// and including the optimistic user message is kept.
type TurnError struct {
	Err error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("failed to complete run: %v", e.Err)
}

func (e *TurnError) Unwrap() error { return e.Err }
