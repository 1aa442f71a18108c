package controller

// evaluateMotion is the motion track's decision procedure. It runs whenever
// a motion report changes or the track's own timer fires. Once any motion
// report exists the track always keeps a live future check scheduled, so a
// sensor going silent cannot strand the light on forever. Loop-only.
func (c *Controller) evaluateMotion() {
	if !c.store.HasMotionReports() {
		// Nothing has ever reported; nothing to decide.
		return
	}

	// Motion present: the first sensor (configured order) that currently
	// detects motion decides, gated on its paired light-level reading.
	// This branch never inspects time since last motion.
	for i := 0; i < c.store.SensorCount(); i++ {
		r := c.store.Motion(i)
		if r == nil || !r.Motion {
			continue
		}

		level := c.store.LightLevel(i)
		if level == nil {
			c.logger.Debug("motion without light reading, skipping cycle", "sensor", i)
			return
		}
		if level.LightLevel > c.cfg.DarknessThreshold {
			c.logger.Debug("room bright enough, skipping cycle",
				"sensor", i,
				"light_level", level.LightLevel,
				"threshold", c.cfg.DarknessThreshold,
			)
			return
		}

		c.setLight(true)
		c.scheduleMotionEval(c.cooldown())
		return
	}

	// No current motion: keep the light on while the most recent motion is
	// within the hold window, retrying exactly when the hold would expire.
	elapsed := c.now().Sub(c.store.LatestMotionChange())
	if elapsed < c.cfg.HoldDuration {
		c.logger.Debug("motion recent, holding",
			"elapsed", elapsed,
			"hold", c.cfg.HoldDuration,
		)
		c.scheduleMotionEval(c.cfg.HoldDuration - elapsed)
		return
	}

	// Hold expired. The manual override suppresses the off dispatch but the
	// safety re-check is scheduled regardless.
	if !c.manualOverride {
		c.setLight(false)
	}
	c.scheduleMotionEval(c.cooldown())
}
