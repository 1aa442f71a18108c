package controller

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nwaller/lumen-core/internal/report"
)

var evalTime = time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC)

// mockTransport captures outbound commands and status requests.
type mockTransport struct {
	mu             sync.Mutex
	commands       []bool
	statusRequests int
	setErr         error
}

func (m *mockTransport) SetPower(on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, on)
	return m.setErr
}

func (m *mockTransport) RequestStatus() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusRequests++
	return nil
}

func (m *mockTransport) commandLog() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]bool, len(m.commands))
	copy(out, m.commands)
	return out
}

// mockNotifier records controller events.
type mockNotifier struct {
	mu        sync.Mutex
	commands  []time.Duration
	statuses  []DeviceStatus
	overrides []bool
}

func (m *mockNotifier) CommandSent(_ bool, onDuration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, onDuration)
}

func (m *mockNotifier) StatusUpdated(status DeviceStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
}

func (m *mockNotifier) OverrideChanged(active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides = append(m.overrides, active)
}

// newTestController builds a controller with a frozen clock and a long hold,
// without starting the event loop. Loop-only methods are safe to call
// directly because nothing else touches the state.
func newTestController(t *testing.T, sensors int) (*Controller, *mockTransport) {
	t.Helper()

	transport := &mockTransport{}
	c := New(Config{
		Sensors:           sensors,
		DarknessThreshold: 8500,
		HoldDuration:      120 * time.Second,
		PollInterval:      time.Hour,
	}, transport)
	c.now = func() time.Time { return evalTime }
	t.Cleanup(c.stopTimers)

	return c, transport
}

// motionAt feeds a motion report whose STORED change time lands at the given
// instant, compensating for the clear-lag skew on clear reports.
func motionAt(c *Controller, index int, detected bool, changed time.Time) {
	if !detected {
		changed = changed.Add(10 * time.Second)
	}
	c.store.UpdateMotion(index, report.MotionReport{Motion: detected, Changed: changed})
}

func TestEvaluateMotion_NoReportsDoesNothing(t *testing.T) {
	c, transport := newTestController(t, 2)

	c.evaluateMotion()

	if len(transport.commandLog()) != 0 {
		t.Errorf("commands = %v, want none", transport.commandLog())
	}
	if c.motionTimer != nil {
		t.Error("no timer should be armed when nothing has reported")
	}
}

func TestEvaluateMotion_BrightRoomGatesDispatch(t *testing.T) {
	c, transport := newTestController(t, 2)

	// Sensor A: motion, but its paired reading says the room is bright.
	// Sensor B: no motion. Nothing should be dispatched.
	motionAt(c, 0, true, evalTime)
	c.store.UpdateLightLevel(0, report.LightLevelReport{LightLevel: 9000, Changed: evalTime})
	motionAt(c, 1, false, evalTime)

	c.evaluateMotion()

	if len(transport.commandLog()) != 0 {
		t.Errorf("commands = %v, want none (room too bright)", transport.commandLog())
	}
	if c.motionTimer != nil {
		t.Error("bright branch must not reschedule")
	}
}

func TestEvaluateMotion_DarkRoomDispatchesOn(t *testing.T) {
	c, transport := newTestController(t, 2)

	motionAt(c, 0, true, evalTime)
	c.store.UpdateLightLevel(0, report.LightLevelReport{LightLevel: 8000, Changed: evalTime})

	c.evaluateMotion()

	if got := transport.commandLog(); len(got) != 1 || !got[0] {
		t.Fatalf("commands = %v, want exactly one on", got)
	}

	// Re-check scheduled after the cool-down (2 × hold).
	want := evalTime.Add(240 * time.Second)
	if !c.nextMotionEval.Equal(want) {
		t.Errorf("nextMotionEval = %v, want %v", c.nextMotionEval, want)
	}
}

func TestEvaluateMotion_ThresholdIsInclusive(t *testing.T) {
	c, transport := newTestController(t, 1)

	motionAt(c, 0, true, evalTime)
	c.store.UpdateLightLevel(0, report.LightLevelReport{LightLevel: 8500, Changed: evalTime})

	c.evaluateMotion()

	if got := transport.commandLog(); len(got) != 1 || !got[0] {
		t.Fatalf("commands = %v, want on at exactly the threshold", got)
	}
}

func TestEvaluateMotion_MissingLightReadingSkipsCycle(t *testing.T) {
	c, transport := newTestController(t, 1)

	motionAt(c, 0, true, evalTime)

	c.evaluateMotion()

	if len(transport.commandLog()) != 0 {
		t.Errorf("commands = %v, want none (no light reading)", transport.commandLog())
	}
	if c.motionTimer != nil {
		t.Error("missing-reading branch must not reschedule")
	}
}

func TestEvaluateMotion_FirstMotionSensorInConfiguredOrderDecides(t *testing.T) {
	c, transport := newTestController(t, 2)

	// Sensor 0 is quiet; sensor 1 has motion and a dark reading. The
	// decision must pair sensor 1 with ITS reading, not sensor 0's.
	motionAt(c, 0, false, evalTime)
	c.store.UpdateLightLevel(0, report.LightLevelReport{LightLevel: 20000, Changed: evalTime})
	motionAt(c, 1, true, evalTime)
	c.store.UpdateLightLevel(1, report.LightLevelReport{LightLevel: 100, Changed: evalTime})

	c.evaluateMotion()

	if got := transport.commandLog(); len(got) != 1 || !got[0] {
		t.Fatalf("commands = %v, want exactly one on", got)
	}
}

func TestEvaluateMotion_RecentMotionHoldsAndRetriesAtExpiry(t *testing.T) {
	c, transport := newTestController(t, 2)

	// All sensors clear, most recent change 30s ago with a 120s hold:
	// nothing dispatched, retry scheduled for the moment the hold expires.
	motionAt(c, 0, false, evalTime.Add(-30*time.Second))
	motionAt(c, 1, false, evalTime.Add(-45*time.Second))

	c.evaluateMotion()

	if len(transport.commandLog()) != 0 {
		t.Errorf("commands = %v, want none during hold", transport.commandLog())
	}

	want := evalTime.Add(90 * time.Second)
	if !c.nextMotionEval.Equal(want) {
		t.Errorf("nextMotionEval = %v, want %v (hold expiry)", c.nextMotionEval, want)
	}
}

func TestEvaluateMotion_ExpiredHoldDispatchesOff(t *testing.T) {
	c, transport := newTestController(t, 1)

	motionAt(c, 0, false, evalTime.Add(-130*time.Second))

	c.evaluateMotion()

	if got := transport.commandLog(); len(got) != 1 || got[0] {
		t.Fatalf("commands = %v, want exactly one off", got)
	}

	want := evalTime.Add(240 * time.Second)
	if !c.nextMotionEval.Equal(want) {
		t.Errorf("nextMotionEval = %v, want %v (safety re-check)", c.nextMotionEval, want)
	}
}

func TestEvaluateMotion_OverrideSuppressesOff(t *testing.T) {
	c, transport := newTestController(t, 1)

	motionAt(c, 0, false, evalTime.Add(-130*time.Second))
	c.manualOverride = true

	c.evaluateMotion()

	if len(transport.commandLog()) != 0 {
		t.Errorf("commands = %v, want none while override active", transport.commandLog())
	}

	// The safety re-check is scheduled regardless of the override.
	want := evalTime.Add(240 * time.Second)
	if !c.nextMotionEval.Equal(want) {
		t.Errorf("nextMotionEval = %v, want %v", c.nextMotionEval, want)
	}
}

func TestEvaluateMotion_TransportFailureDoesNotPanic(t *testing.T) {
	c, transport := newTestController(t, 1)
	transport.setErr = errors.New("socket closed")

	motionAt(c, 0, true, evalTime)
	c.store.UpdateLightLevel(0, report.LightLevelReport{LightLevel: 100, Changed: evalTime})

	// Sending is fire-and-forget; errors are logged, never propagated.
	c.evaluateMotion()

	if got := transport.commandLog(); len(got) != 1 {
		t.Fatalf("commands = %v, want the send attempted", got)
	}
}
