package controller

import (
	"context"
	"time"

	"github.com/nwaller/lumen-core/internal/report"
)

// Scheduling constants.
const (
	// coalesceDelay is the minimal delay used when a report change triggers
	// a re-evaluation. Deferring by one tick lets bursts of near-simultaneous
	// updates collapse into a single evaluation.
	coalesceDelay = time.Millisecond

	// cooldownMultiplier scales the hold duration into the long re-check
	// interval used after a dispatch, so the engine does not re-fire every
	// tick while motion is ongoing.
	cooldownMultiplier = 2

	// callBufferSize is the event loop's inbound closure buffer. Large
	// enough for the startup snapshot fetch to complete before Run drains.
	callBufferSize = 64
)

// Controller is the occupancy lighting decision engine.
//
// All state is owned by the event loop started with Run. External callers
// (bridges, timers, the API) interact exclusively through the Handle*
// methods and Snapshot, which post work into the loop.
type Controller struct {
	cfg       Config
	transport DeviceTransport
	store     *report.Store
	tracker   *StatusTracker
	logger    Logger
	notifier  Notifier

	calls chan func()
	done  chan struct{}

	// Per-track re-evaluation timers. At most one pending timer per track;
	// scheduling cancels and replaces any outstanding one.
	motionTimer    *time.Timer
	buttonTimer    *time.Timer
	nextMotionEval time.Time
	nextButtonEval time.Time

	manualOverride bool
	lastOnAt       time.Time

	// now is replaceable for tests.
	now func() time.Time
}

// New creates a Controller. Zero config values fall back to the standard
// tuning (threshold 8500, hold 2m, poll 666ms).
func New(cfg Config, transport DeviceTransport) *Controller {
	if cfg.DarknessThreshold == 0 {
		cfg.DarknessThreshold = 8500
	}
	if cfg.HoldDuration == 0 {
		cfg.HoldDuration = 2 * time.Minute
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 666 * time.Millisecond
	}

	return &Controller{
		cfg:       cfg,
		transport: transport,
		store:     report.NewStore(cfg.Sensors),
		tracker:   NewStatusTracker(),
		logger:    noopLogger{},
		notifier:  noopNotifier{},
		calls:     make(chan func(), callBufferSize),
		done:      make(chan struct{}),
		now:       time.Now,
	}
}

// SetLogger sets the logger. Call before Run.
func (c *Controller) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// SetNotifier sets the observability notifier. Call before Run.
func (c *Controller) SetNotifier(notifier Notifier) {
	if notifier != nil {
		c.notifier = notifier
	}
}

// Run executes the event loop until the context is cancelled.
//
// It polls the device status on the configured period and serialises all
// posted work. Run must be called exactly once; after it returns, posted
// work is dropped and Snapshot returns ErrStopped.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	defer close(c.done)
	defer c.stopTimers()

	// Prime the status tracker immediately rather than waiting a full poll
	// period: the button track is useless until a status is known.
	c.pollStatus()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("controller loop stopping")
			return nil
		case fn := <-c.calls:
			fn()
		case <-ticker.C:
			c.pollStatus()
		}
	}
}

// post delivers fn to the event loop, dropping it if the loop has exited.
func (c *Controller) post(fn func()) {
	select {
	case c.calls <- fn:
	case <-c.done:
	}
}

// HandleMotion delivers a motion report for the sensor at index.
// Safe for concurrent use.
func (c *Controller) HandleMotion(index int, r report.MotionReport) {
	c.post(func() {
		if !c.store.UpdateMotion(index, r) {
			return
		}
		stored := c.store.Motion(index)
		c.logger.Info("motion report changed",
			"sensor", index,
			"motion", stored.Motion,
			"changed", stored.Changed,
		)
		c.scheduleMotionEval(coalesceDelay)
	})
}

// HandleLightLevel delivers a light-level report for the sensor at index.
// Light-level changes are stored but never trigger an evaluation on their
// own; the motion track reads them when it fires. Safe for concurrent use.
func (c *Controller) HandleLightLevel(index int, r report.LightLevelReport) {
	c.post(func() {
		if !c.store.UpdateLightLevel(index, r) {
			return
		}
		c.logger.Info("light level changed",
			"sensor", index,
			"light_level", r.LightLevel,
		)
	})
}

// HandleButton delivers a button report. Non-initial_press events are
// ignored by the store and never trigger anything. Safe for concurrent use.
func (c *Controller) HandleButton(r report.ButtonReport) {
	c.post(func() {
		if !c.store.UpdateButton(r) {
			return
		}
		c.logger.Info("button pressed", "updated", r.Updated)
		c.scheduleButtonEval(coalesceDelay)
	})
}

// HandleStatus delivers a device status response. Safe for concurrent use.
func (c *Controller) HandleStatus(status DeviceStatus) {
	c.post(func() {
		stamped := c.tracker.Update(status, c.now())
		c.logger.Debug("device status updated",
			"on", stamped.On,
			"round_trip_ms", stamped.RoundTripMS,
		)
		c.notifier.StatusUpdated(stamped)
	})
}

// Snapshot returns a point-in-time view of the controller state, obtained
// through the event loop so no locking is needed. Safe for concurrent use.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	out := make(chan Snapshot, 1)
	c.post(func() {
		out <- c.snapshot()
	})

	select {
	case snap := <-out:
		return snap, nil
	case <-c.done:
		return Snapshot{}, ErrStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// snapshot builds a Snapshot. Loop-only.
func (c *Controller) snapshot() Snapshot {
	snap := Snapshot{
		ManualOverride: c.manualOverride,
		DeviceStatus:   c.tracker.Current(),
		Button:         c.store.Button(),
	}
	for i := 0; i < c.store.SensorCount(); i++ {
		snap.Motion = append(snap.Motion, c.store.Motion(i))
		snap.LightLevels = append(snap.LightLevels, c.store.LightLevel(i))
	}
	if !c.lastOnAt.IsZero() {
		t := c.lastOnAt
		snap.LightOnSince = &t
	}
	if c.motionTimer != nil {
		t := c.nextMotionEval
		snap.NextMotionEval = &t
	}
	if c.buttonTimer != nil {
		t := c.nextButtonEval
		snap.NextButtonEval = &t
	}
	return snap
}

// pollStatus records the request timestamp and fires a status request.
// Loop-only.
func (c *Controller) pollStatus() {
	c.tracker.NoteRequest(c.now())
	if err := c.transport.RequestStatus(); err != nil {
		c.logger.Debug("status request failed", "error", err)
	}
}

// scheduleMotionEval arms the motion track's re-evaluation timer, cancelling
// any outstanding one. Loop-only.
func (c *Controller) scheduleMotionEval(delay time.Duration) {
	if c.motionTimer != nil {
		c.motionTimer.Stop()
	}
	c.nextMotionEval = c.now().Add(delay)
	c.motionTimer = time.AfterFunc(delay, func() {
		c.post(c.evaluateMotion)
	})
}

// scheduleButtonEval arms the button track's re-evaluation timer, cancelling
// any outstanding one. Loop-only.
func (c *Controller) scheduleButtonEval(delay time.Duration) {
	if c.buttonTimer != nil {
		c.buttonTimer.Stop()
	}
	c.nextButtonEval = c.now().Add(delay)
	c.buttonTimer = time.AfterFunc(delay, func() {
		c.post(c.evaluateButton)
	})
}

// stopTimers cancels both track timers. Loop-only.
func (c *Controller) stopTimers() {
	if c.motionTimer != nil {
		c.motionTimer.Stop()
	}
	if c.buttonTimer != nil {
		c.buttonTimer.Stop()
	}
}

// cooldown is the long re-check interval used after a dispatch.
func (c *Controller) cooldown() time.Duration {
	return cooldownMultiplier * c.cfg.HoldDuration
}
