// Package api implements the HTTP REST API and WebSocket server for PickLight Core.
//
// This package provides:
//   - REST endpoints for shelf and position management and light commands
//   - WebSocket hub for real-time gateway event broadcasts
//   - Optional API-key/JWT authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between warehouse frontends (pick terminals, the
// commissioning UI) and the MQTT gateway. Commands flow from the API through
// the gateway to shelf controllers, which acknowledge each command; gateway
// events (controller presence, command results, synced positions) flow back
// and are broadcast to WebSocket clients.
//
// # Routes
//
// The command surface lives under /light and keeps the paths the existing
// warehouse frontends were built against. The operational surface (/health,
// /version, /metrics, /auth, /audit, the WebSocket stream) follows the
// conventions of the rest of the system.
//
// # Security
//
// Authentication is optional and disabled by default: gateways commonly run
// on an isolated warehouse LAN. When enabled, clients exchange the configured
// API key for a short-lived bearer token at /auth/token. WebSocket
// connections use single-use tickets to keep tokens out of URLs.
package api
