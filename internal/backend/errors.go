package backend

import "errors"

var (
	// ErrNotBound is returned by Session.Run before Session.Bind succeeded.
	ErrNotBound = errors.New("session has no bound inputs")
	// ErrClosed is returned by Bind and Run after Close. Close itself is
	// idempotent.
	ErrClosed = errors.New("session is closed")
)
