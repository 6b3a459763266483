package dispatch

import "errors"

var (
	// ErrUnknownType describes a frame with no registered handler. The
	// Dispatcher logs such frames and does not return this error.
	ErrUnknownType = errors.New("no handler registered for message type")
	// ErrSessionExpired describes a frame whose session is gone. The
	// Dispatcher handles that case itself and does not return this error.
	ErrSessionExpired = errors.New("session expired or not found")
)
