package coordinator

import "errors"

var (
	// ErrAlreadyRunning is returned by Start when called while running.
	ErrAlreadyRunning = errors.New("coordinator: already running")

	// ErrNotRunning is returned by operations that require Start to have
	// succeeded first.
	ErrNotRunning = errors.New("coordinator: not running")
)
