package controller

import "errors"

// Domain errors for the controller package.
var (
	// ErrStopped is returned when the controller's event loop has exited.
	ErrStopped = errors.New("controller: stopped")
)
