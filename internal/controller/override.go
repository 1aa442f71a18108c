package controller

// evaluateButton is the button track's decision procedure. It toggles the
// manual override keyed off the device's actual power state, so the button's
// effect is always predictable from what the user observes rather than from
// internal bookkeeping. Loop-only.
func (c *Controller) evaluateButton() {
	if c.store.Button() == nil {
		return
	}

	if current := c.tracker.Current(); current != nil {
		c.applyOverrideToggle(*current)
		return
	}

	// No status known yet: deciding blind could fight the device, so defer
	// the toggle to the next poll response via the tracker's one-shot slot.
	// Staleness is bounded by the poll period.
	c.logger.Warn("button pressed before any device status, deferring to next poll")
	c.tracker.OnNextStatus(func(current DeviceStatus, _ *DeviceStatus) {
		c.applyOverrideToggle(current)
	})
}

// applyOverrideToggle flips the override according to the observed device
// state: press while on means "turn it off and resume automatic mode",
// press while off means "keep it on regardless of motion". Loop-only.
func (c *Controller) applyOverrideToggle(current DeviceStatus) {
	if current.On {
		c.logger.Info("disabling manual override")
		c.setOverride(false)
		c.setLight(false)
		return
	}

	c.logger.Info("enabling manual override")
	c.setOverride(true)
	c.setLight(true)
}

// setOverride updates the override flag and notifies listeners. Loop-only.
func (c *Controller) setOverride(active bool) {
	c.manualOverride = active
	c.notifier.OverrideChanged(active)
}
