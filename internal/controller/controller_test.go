package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nwaller/lumen-core/internal/report"
)

// startController runs a controller's event loop with a real clock and a
// poll period long enough that only the startup prime requests a status.
func startController(t *testing.T, sensors int) (*Controller, *mockTransport) {
	t.Helper()

	transport := &mockTransport{}
	c := New(Config{
		Sensors:      sensors,
		HoldDuration: 120 * time.Second,
		PollInterval: time.Hour,
	}, transport)

	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-loopDone
	})

	return c, transport
}

// drain waits until the loop has processed everything posted before it.
func drain(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := c.Snapshot(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
}

// waitForCommands polls until the transport has seen n commands.
func waitForCommands(t *testing.T, transport *mockTransport, n int) []bool {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := transport.commandLog(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d commands, have %v", n, transport.commandLog())
	return nil
}

func TestRun_PrimesStatusOnStartup(t *testing.T) {
	c, transport := startController(t, 1)
	drain(t, c)

	transport.mu.Lock()
	requests := transport.statusRequests
	transport.mu.Unlock()
	if requests != 1 {
		t.Errorf("status requests = %d, want the single startup prime", requests)
	}
}

func TestHandleMotion_DuplicateReportDispatchesOnce(t *testing.T) {
	c, transport := startController(t, 1)
	now := time.Now()

	c.HandleLightLevel(0, report.LightLevelReport{LightLevel: 100, Changed: now})

	// A retransmitted report must not trigger a second evaluation, so the
	// light is commanded exactly once.
	r := report.MotionReport{Motion: true, Changed: now}
	c.HandleMotion(0, r)
	c.HandleMotion(0, r)

	got := waitForCommands(t, transport, 1)
	time.Sleep(50 * time.Millisecond)
	drain(t, c)

	if got = transport.commandLog(); len(got) != 1 || !got[0] {
		t.Errorf("commands = %v, want exactly one on", got)
	}
}

func TestHandleMotion_BurstCoalescesIntoOneEvaluation(t *testing.T) {
	c, transport := startController(t, 2)
	now := time.Now()

	c.HandleLightLevel(0, report.LightLevelReport{LightLevel: 100, Changed: now})
	c.HandleLightLevel(1, report.LightLevelReport{LightLevel: 100, Changed: now})

	// Two sensors report within the coalescing window. Rescheduling must
	// cancel the first pending timer, so only one evaluation runs and only
	// one command is sent.
	c.HandleMotion(0, report.MotionReport{Motion: true, Changed: now})
	c.HandleMotion(1, report.MotionReport{Motion: true, Changed: now})

	got := waitForCommands(t, transport, 1)
	time.Sleep(50 * time.Millisecond)
	drain(t, c)

	if got = transport.commandLog(); len(got) != 1 || !got[0] {
		t.Errorf("commands = %v, want one on from the coalesced burst", got)
	}
}

func TestHandleStatus_ForwardsToNotifier(t *testing.T) {
	transport := &mockTransport{}
	c := New(Config{Sensors: 1, PollInterval: time.Hour}, transport)
	notifier := &mockNotifier{}
	c.SetNotifier(notifier)

	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-loopDone
	})

	c.HandleStatus(DeviceStatus{On: true})
	drain(t, c)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.statuses) != 1 || !notifier.statuses[0].On {
		t.Errorf("statuses = %+v, want one on status", notifier.statuses)
	}
	if notifier.statuses[0].PolledAt.IsZero() {
		t.Error("forwarded status must carry a poll timestamp")
	}
}

func TestSnapshot_ReflectsLoopState(t *testing.T) {
	c, _ := startController(t, 2)
	now := time.Now()

	c.HandleMotion(0, report.MotionReport{Motion: true, Changed: now})
	c.HandleLightLevel(1, report.LightLevelReport{LightLevel: 12000, Changed: now})
	c.HandleButton(report.ButtonReport{Event: report.ButtonEventInitialPress, Updated: now})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := c.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if len(snap.Motion) != 2 || len(snap.LightLevels) != 2 {
		t.Fatalf("snapshot slices sized %d/%d, want 2/2", len(snap.Motion), len(snap.LightLevels))
	}
	if snap.Motion[0] == nil || !snap.Motion[0].Motion {
		t.Errorf("Motion[0] = %+v, want a motion-detected report", snap.Motion[0])
	}
	if snap.Motion[1] != nil {
		t.Errorf("Motion[1] = %+v, want nil for a silent sensor", snap.Motion[1])
	}
	if snap.LightLevels[1] == nil || snap.LightLevels[1].LightLevel != 12000 {
		t.Errorf("LightLevels[1] = %+v, want the stored reading", snap.LightLevels[1])
	}
	if snap.Button == nil {
		t.Error("Button = nil, want the stored press")
	}
}

func TestSnapshot_AfterStopReturnsErrStopped(t *testing.T) {
	transport := &mockTransport{}
	c := New(Config{Sensors: 1, PollInterval: time.Hour}, transport)

	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = c.Run(ctx)
	}()

	cancel()
	<-loopDone

	if _, err := c.Snapshot(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("Snapshot after stop = %v, want ErrStopped", err)
	}
}
