// Package auth issues and verifies API access tokens for PickLight Core.
//
// The model is deliberately small: gateways run on isolated warehouse
// LANs and authentication is off by default. When enabled, clients
// exchange the configured API key for a short-lived HS256 JWT and
// present it as a bearer token. Verification is signature-only with no
// database hit, so it stays cheap on the picking hot path.
package auth
