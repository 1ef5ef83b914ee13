package shelf

import (
	"fmt"
	"regexp"
)

// Validation constants.
//
// Position ids and LED indices travel as single bytes in the command
// frames, so both are capped at 255. MAC addresses become MQTT topic
// segments (pbl/<mac>/...), so anything that is not a plain colon-hex
// MAC is rejected before it can corrupt a topic.
const (
	maxByteValue = 255
	macPattern   = `^[0-9A-Fa-f]{2}(?::[0-9A-Fa-f]{2}){5}$`
)

var macRegex = regexp.MustCompile(macPattern)

// ValidateMAC checks that a MAC address is in colon-separated hex form
// (e.g. "24:6F:28:AE:52:7C"). Case is not significant; the address is
// stored and matched exactly as the controller announced it.
func ValidateMAC(mac string) error {
	if mac == "" {
		return fmt.Errorf("%w: mac address cannot be empty", ErrInvalidMAC)
	}
	if !macRegex.MatchString(mac) {
		return fmt.Errorf("%w: %q", ErrInvalidMAC, mac)
	}
	return nil
}

// ValidatePositionID checks that a position id fits in a single byte.
func ValidatePositionID(id int) error {
	if id < 0 || id > maxByteValue {
		return fmt.Errorf("%w: %d is outside 0-255", ErrInvalidPosition, id)
	}
	return nil
}

// ValidateLEDs checks an LED list for a stored position: it must be
// non-empty and every index must fit in a single byte.
func ValidateLEDs(leds []int) error {
	if len(leds) == 0 {
		return fmt.Errorf("%w: led list cannot be empty", ErrInvalidLEDs)
	}
	return ValidateLEDRange(leds)
}

// ValidateLEDRange checks that every LED index fits in a single byte.
// Unlike ValidateLEDs it accepts an empty list; the direct set/unset
// commands take the LED list straight from the request.
func ValidateLEDRange(leds []int) error {
	for _, led := range leds {
		if led < 0 || led > maxByteValue {
			return fmt.Errorf("%w: led %d is outside 0-255", ErrInvalidLEDs, led)
		}
	}
	return nil
}

// findLEDConflict reports the first LED in leds that is already owned by
// another position in positions. The position with id exclude is skipped,
// which lets updates re-claim their own LEDs; pass a negative exclude
// when creating. Returns the conflicting position id and LED index.
func findLEDConflict(leds []int, positions []Position, exclude int) (posID, led int, found bool) {
	for i := range positions {
		if positions[i].ID == exclude {
			continue
		}
		for _, l := range leds {
			for _, owned := range positions[i].LEDs {
				if l == owned {
					return positions[i].ID, l, true
				}
			}
		}
	}
	return 0, 0, false
}
