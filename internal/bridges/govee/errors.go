package govee

import "errors"

// Domain errors for the Govee client package.
var (
	// ErrNotConnected is returned when a command is sent before the local
	// response port has been bound.
	ErrNotConnected = errors.New("govee: not connected")

	// ErrNoDevice is returned when no device address is configured and
	// discovery has not adopted one yet.
	ErrNoDevice = errors.New("govee: no device address known")

	// ErrInvalidConfig is returned when the client configuration is
	// incomplete or out of range.
	ErrInvalidConfig = errors.New("govee: invalid configuration")
)
