package hue

import "errors"

// Domain errors for the Hue bridge package.
var (
	// ErrMissingHost is returned when no bridge host is configured.
	ErrMissingHost = errors.New("hue: bridge host is required")

	// ErrMissingKey is returned when no application key is configured.
	ErrMissingKey = errors.New("hue: application key is required")

	// ErrSensorPairing is returned when the motion and light sensor lists
	// are empty or differ in length.
	ErrSensorPairing = errors.New("hue: motion and light sensor lists must pair up")

	// ErrSnapshotFailed is returned when an initial resource fetch does not
	// yield a usable resource.
	ErrSnapshotFailed = errors.New("hue: resource snapshot failed")
)
