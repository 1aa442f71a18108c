package controller

import "time"

// setLight is the single choke point for outbound power commands.
//
// Every call sends exactly one command; duplicates are not collapsed here
// (the device tolerates repeated commands in the same state). On the
// transition to on, the time is recorded so the matching off can report how
// long the light was on. Loop-only.
func (c *Controller) setLight(on bool) {
	now := c.now()

	var onDuration time.Duration
	switch {
	case on:
		c.logger.Info("turning light on")
		c.lastOnAt = now
	case !c.lastOnAt.IsZero():
		onDuration = now.Sub(c.lastOnAt)
		c.lastOnAt = time.Time{}
		c.logger.Info("turning light off", "on_duration", onDuration.Round(time.Second).String())
	default:
		c.logger.Info("turning light off")
	}

	// Fire-and-forget: delivery failures are invisible beyond the send
	// itself, and a future scheduled tick re-decides anyway.
	if err := c.transport.SetPower(on); err != nil {
		c.logger.Error("light command failed", "on", on, "error", err)
	}

	c.notifier.CommandSent(on, onDuration)
}
