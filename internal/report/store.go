package report

import "time"

// Store holds the latest known report per configured sensor.
//
// Slots are keyed by the sensor's configured index: motion sensor i is
// positionally paired with light-level sensor i. A slot is nil until the
// first report for that sensor arrives; reports are overwritten on each
// subsequent distinct report and never deleted while the process runs.
type Store struct {
	motion []*MotionReport
	light  []*LightLevelReport
	button *ButtonReport
}

// NewStore creates a Store with sensorCount motion and light-level slots.
func NewStore(sensorCount int) *Store {
	return &Store{
		motion: make([]*MotionReport, sensorCount),
		light:  make([]*LightLevelReport, sensorCount),
	}
}

// SensorCount returns the number of configured motion/light sensor pairs.
func (s *Store) SensorCount() int {
	return len(s.motion)
}

// UpdateMotion stores a motion report for the sensor at index.
//
// The clear-lag skew is applied before comparison so a retransmitted clear
// report still dedups against the stored one. Returns true when the report
// differs from the stored one (including the first report for the slot);
// false when it is identical or the index is out of range.
func (s *Store) UpdateMotion(index int, r MotionReport) bool {
	if index < 0 || index >= len(s.motion) {
		return false
	}

	r = r.adjusted()
	if old := s.motion[index]; old != nil && old.Equal(r) {
		return false
	}

	s.motion[index] = &r
	return true
}

// UpdateLightLevel stores a light-level report for the sensor at index.
// Returns true when the report differs from the stored one.
func (s *Store) UpdateLightLevel(index int, r LightLevelReport) bool {
	if index < 0 || index >= len(s.light) {
		return false
	}

	if old := s.light[index]; old != nil && old.Equal(r) {
		return false
	}

	s.light[index] = &r
	return true
}

// UpdateButton stores a button report.
//
// Only initial_press events are retained; any other event kind is ignored
// entirely (never stored, never reported as a change). Returns true when an
// initial_press differs from the stored report.
func (s *Store) UpdateButton(r ButtonReport) bool {
	if r.Event != ButtonEventInitialPress {
		return false
	}

	if s.button != nil && s.button.Equal(r) {
		return false
	}

	s.button = &r
	return true
}

// Motion returns the stored motion report for index, or nil if none has
// arrived yet (or the index is out of range).
func (s *Store) Motion(index int) *MotionReport {
	if index < 0 || index >= len(s.motion) {
		return nil
	}
	return s.motion[index]
}

// LightLevel returns the stored light-level report for index, or nil.
func (s *Store) LightLevel(index int) *LightLevelReport {
	if index < 0 || index >= len(s.light) {
		return nil
	}
	return s.light[index]
}

// Button returns the stored button report, or nil if no initial_press has
// ever arrived.
func (s *Store) Button() *ButtonReport {
	return s.button
}

// HasMotionReports reports whether at least one motion sensor has reported.
func (s *Store) HasMotionReports() bool {
	for _, r := range s.motion {
		if r != nil {
			return true
		}
	}
	return false
}

// LatestMotionChange returns the maximum Changed timestamp across all stored
// motion reports. Slots with no report contribute the zero time.
func (s *Store) LatestMotionChange() time.Time {
	var latest time.Time
	for _, r := range s.motion {
		if r != nil && r.Changed.After(latest) {
			latest = r.Changed
		}
	}
	return latest
}
