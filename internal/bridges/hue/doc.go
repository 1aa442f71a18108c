// Package hue implements the Philips Hue bridge client for Lumen.
//
// This package subscribes to the Hue bridge's CLIP v2 server-sent event
// stream and translates sensor resource updates into the controller's
// report types.
//
// # Architecture
//
// The client sits between the Hue bridge and the decision engine:
//
//	┌─────────────────┐   HTTPS/SSE   ┌─────────────────┐
//	│   Hue Bridge    │──────────────►│   Hue Client    │──► Sink
//	│  (CLIP v2 API)  │◄──────────────│   (this pkg)    │
//	└─────────────────┘   HTTPS GET   └─────────────────┘
//
// # Key Responsibilities
//
//   - Subscribe to /eventstream/clip/v2 with automatic reconnection
//   - Fetch an initial snapshot of each configured sensor resource
//   - Decode motion, light_level, and button resource updates
//   - Route updates to the sink by configured sensor index
//
// # Resource Matching
//
// The bridge pushes updates for every paired resource. Only updates whose
// resource id matches a configured sensor are forwarded; everything else is
// ignored. Updates without the expected nested report block (the bridge
// sends partial resources) are skipped.
//
// # Thread Safety
//
// A Client is driven by a single Run goroutine. Prime may be called before
// Run from the same goroutine; the sink must be safe for concurrent use.
package hue
