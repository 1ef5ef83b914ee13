// Package gateway implements the command layer between the HTTP API and
// the ESP32 shelf controllers.
//
// Every controller-facing operation lives here: the gateway validates a
// request against the shelf registry, builds the binary command frame,
// publishes it over MQTT, and waits for the controller to echo the
// frame's acknowledgment id before any registry state is changed.
//
// # Architecture
//
//	┌─────────────┐          ┌─────────────────┐          ┌─────────────┐
//	│  HTTP API   │  calls   │     Gateway     │   MQTT   │    ESP32    │
//	│             │─────────►│   (this pkg)    │◄────────►│ controllers │
//	└─────────────┘          └─────────────────┘          └─────────────┘
//
// # Key Responsibilities
//
//   - Translate typed operations (TurnOn, CreatePosition, ...) into
//     command frames on the pbl/{mac}/{class}/{operation} topics
//   - Gate registry mutations on controller acknowledgment: a position
//     is stored only after the controller confirmed it
//   - Apply inbound controller traffic (register announcements, offline
//     wills, position uploads) to the registry
//   - Record every command exchange in the audit trail and, when
//     enabled, as telemetry points
//   - Publish gateway events (presence changes, command results) to the
//     hub consumed by the WebSocket API
//
// # Wire Format
//
// Command bodies are raw bytes: LED indices and position ids travel as
// single bytes, colours as three RGB bytes. The acknowledgment id prefix
// is added by the correlation session, not here.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use. Operations for
// different controllers proceed independently; the correlation session
// serialises nothing beyond id allocation.
package gateway
