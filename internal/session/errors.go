package session

import "errors"

// Precondition errors returned by Manager operations. Reply and storage
// failures are never returned; they are logged and absorbed.
var (
	ErrNotReady           = errors.New("session: history is still loading")
	ErrBusy               = errors.New("session: waiting for the assistant")
	ErrEmptyMessage       = errors.New("session: message is empty")
	ErrClosed             = errors.New("session: signed out")
	ErrAlreadyInitialized = errors.New("session: already initialized")
)
