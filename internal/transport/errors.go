package transport

import (
	"errors"
	"fmt"
)

var (
	ErrNotOpen          = errors.New("connection not open")
	ErrSendQueueFull    = errors.New("send queue full")
	ErrAlreadyConnected = errors.New("client already connected")
	ErrInvalidURL       = errors.New("invalid server URL")
)

// Error is a transport level failure: a dial, read or write that did not
// succeed.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
