package shelf

import "errors"

// Domain errors for the shelf package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, shelf.ErrShelfNotFound) {
//	    // handle not found case
//	}
var (
	// ErrControllerNotFound is returned when a MAC address has never
	// announced itself on pbl/register.
	ErrControllerNotFound = errors.New("shelf: controller not found")

	// ErrControllerExists is returned when registering a MAC address
	// that is already in the catalogue.
	ErrControllerExists = errors.New("shelf: controller already exists")

	// ErrControllerInUse is returned when a controller is already bound
	// to another shelf.
	ErrControllerInUse = errors.New("shelf: controller already in use")

	// ErrShelfNotFound is returned when a shelf number does not exist.
	ErrShelfNotFound = errors.New("shelf: not found")

	// ErrShelfExists is returned when creating a shelf with a number
	// that is already taken.
	ErrShelfExists = errors.New("shelf: already exists")

	// ErrShelfMismatch is returned when a shelf number is bound to a
	// different controller than the one named in the request.
	ErrShelfMismatch = errors.New("shelf: bound to a different controller")

	// ErrPositionNotFound is returned when a position id does not exist
	// on the shelf.
	ErrPositionNotFound = errors.New("shelf: position not found")

	// ErrPositionExists is returned when creating a position with an id
	// that is already taken on the shelf.
	ErrPositionExists = errors.New("shelf: position already exists")

	// ErrLEDConflict is returned when a position claims an LED index
	// that another position on the same shelf already owns.
	ErrLEDConflict = errors.New("shelf: led already assigned")

	// ErrInvalidMAC is returned when a MAC address fails format
	// validation.
	ErrInvalidMAC = errors.New("shelf: invalid mac address")

	// ErrInvalidPosition is returned when a position id is outside the
	// single-byte range the wire format allows.
	ErrInvalidPosition = errors.New("shelf: invalid position id")

	// ErrInvalidLEDs is returned when an LED list is empty or contains
	// an index outside the single-byte range.
	ErrInvalidLEDs = errors.New("shelf: invalid led list")
)
