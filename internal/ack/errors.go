package ack

import "errors"

// Domain-specific errors for acknowledgment correlation.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrTimeout is returned when no matching acknowledgment arrives
	// within the caller's deadline. Recoverable; the API layer maps it
	// to a gateway-timeout response.
	ErrTimeout = errors.New("ack: timed out waiting for acknowledgment")

	// ErrTransportUnavailable is returned when a command cannot be
	// published at all: the broker session is down, or every
	// acknowledgment id for the device and class is already in flight.
	// Distinct from ErrTimeout, which means the command went out but
	// was never answered.
	ErrTransportUnavailable = errors.New("ack: transport unavailable")

	// ErrDuplicateKey is returned by Registry.Register when an entry is
	// already live for the same (device, id) in the same class. The
	// session recovers by retrying with a fresh id; it never reaches a
	// caller.
	ErrDuplicateKey = errors.New("ack: duplicate correlation key")

	// errMalformedFrame marks an inbound frame that cannot be decoded.
	// Dispatcher-internal: logged and dropped, never propagated.
	errMalformedFrame = errors.New("ack: malformed acknowledgment frame")
)
