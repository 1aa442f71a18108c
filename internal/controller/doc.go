// Package controller implements the occupancy lighting decision engine for
// Lumen Core.
//
// The controller fuses motion, ambient-light, and button reports into a
// single authoritative on/off intent for the light, with hold/cool-down
// timing and manual-override semantics.
//
// Architecture:
//
//	┌─────────────────────────────────────────────────────────┐
//	│                Controller (controller.go)                │
//	│  Single event loop owning all mutable state              │
//	│                                                          │
//	│  sensor events ──▶ report.Store (dedup)                  │
//	│        │                    │                            │
//	│        ▼                    ▼                            │
//	│  motion track          button track                      │
//	│  (engine.go)           (override.go)                     │
//	│        │                    │                            │
//	│        └──────▶ setLight (dispatcher.go) ──▶ transport   │
//	│                                                          │
//	│  poll ticker ──▶ RequestStatus ──▶ StatusTracker         │
//	│                  (tracker.go, one-shot continuation)     │
//	└─────────────────────────────────────────────────────────┘
//
// # Concurrency Model
//
// All decision logic runs on one event loop (Run). Bridges, timers, and the
// API deliver work by posting closures into the loop, so shared state needs
// no locking. Each reasoning track (motion, button) has at most one pending
// re-evaluation timer; scheduling a new one cancels the outstanding one.
//
// # Failure Model
//
// There is no fatal error class inside the engine. Missing reports, unknown
// device status, and transport send failures all degrade to "skip this
// cycle"; a future scheduled tick or poll retries.
package controller
