package controller

import "time"

// StatusTracker holds the latest polled device status and the timing of the
// most recent status request.
//
// It also carries a single-slot one-shot continuation: the override track
// registers a callback here when it needs a device status that has not
// arrived yet, and the next status response fulfils it exactly once.
//
// The tracker is owned by the controller's event loop and is NOT safe for
// concurrent use.
type StatusTracker struct {
	current       *DeviceStatus
	lastRequestAt time.Time
	onNext        func(current DeviceStatus, previous *DeviceStatus)
}

// NewStatusTracker creates an empty tracker.
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{}
}

// NoteRequest records when a status request was sent. The next Update
// computes its round-trip time against this timestamp.
func (t *StatusTracker) NoteRequest(at time.Time) {
	t.lastRequestAt = at
}

// Update replaces the tracked status wholesale with a response received at
// the given time, stamping PolledAt and RoundTripMS. A registered one-shot
// continuation is invoked exactly once, then cleared, before Update returns.
//
// Returns the stamped status.
func (t *StatusTracker) Update(status DeviceStatus, at time.Time) DeviceStatus {
	status.PolledAt = at
	if !t.lastRequestAt.IsZero() {
		status.RoundTripMS = at.Sub(t.lastRequestAt).Milliseconds()
	}

	previous := t.current
	t.current = &status

	if fn := t.onNext; fn != nil {
		t.onNext = nil
		fn(status, previous)
	}

	return status
}

// Current returns the latest status, or nil if no response has arrived yet.
func (t *StatusTracker) Current() *DeviceStatus {
	return t.current
}

// OnNextStatus registers a one-shot continuation fulfilled by the next
// Update. A second registration before fulfilment replaces the first.
func (t *StatusTracker) OnNextStatus(fn func(current DeviceStatus, previous *DeviceStatus)) {
	t.onNext = fn
}
