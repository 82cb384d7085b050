package session

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPhase   = errors.New("not allowed in the current phase")
	ErrRequestPending = errors.New("a room request is already pending")
	ErrNotAttached    = errors.New("no connection attached")
	ErrNoRoomCode     = errors.New("no room code to copy")
)

// Error wraps a failed operation with the step that failed.
type Error struct {
	Op      string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *Error {
	return &Error{Op: op, Err: err, Details: details}
}

// ProtocolFailure is a server reply with success set to false.
type ProtocolFailure struct {
	Op      string
	Message string

	// Reason is the server's own text when it differs from Message.
	Reason string
}

func (f *ProtocolFailure) Error() string {
	if f.Reason != "" {
		return fmt.Sprintf("%s: server refused: %s: %s", f.Op, f.Message, f.Reason)
	}
	return fmt.Sprintf("%s: server refused: %s", f.Op, f.Message)
}
