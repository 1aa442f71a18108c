// Package report holds the latest known report per sensor and detects
// meaningful changes.
//
// The Store keeps one slot per configured motion sensor, one per paired
// light-level sensor, and a single slot for the button. Updates are compared
// against the stored report with an explicit equality contract; identical
// reports are dropped so that retransmissions and reconnect replays never
// trigger a re-evaluation downstream.
//
// # Key Types
//
//   - MotionReport: presence detected/cleared plus the change timestamp
//   - LightLevelReport: ambient light reading plus the change timestamp
//   - ButtonReport: button event plus the event timestamp
//   - Store: per-sensor latest-report storage with change detection
//
// # Thread Safety
//
// The Store is NOT safe for concurrent use. It is owned by the controller's
// event loop and must only be touched from within that loop.
package report
