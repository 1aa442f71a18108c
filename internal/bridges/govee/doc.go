// Package govee implements the Govee LAN control client for Lumen.
//
// This package speaks the Govee local UDP API: commands go unicast to the
// device's command port, the device answers on a fixed local response port,
// and discovery scan requests go to a well-known multicast group.
//
// # Architecture
//
//	┌──────────────┐  :4003 turn/devStatus   ┌──────────────┐
//	│ Govee Client │────────────────────────►│ Govee Device │
//	│  (this pkg)  │◄────────────────────────│   (LAN API)  │
//	└──────────────┘  :4002 devStatus/scan   └──────────────┘
//	        │
//	        └──► 239.255.255.250:4001 scan (discovery)
//
// # Key Responsibilities
//
//   - Bind the local response port, retrying while it is unavailable
//   - Join the LAN API multicast group
//   - Send power commands and status requests
//   - Decode status responses and deliver them to a handler
//   - Adopt the first device answering a discovery scan
//
// # Thread Safety
//
// SetPower and RequestStatus are safe for concurrent use with Run. The
// status handler is invoked from Run's read loop and must not block.
package govee
