package gateway

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrInvalidColor is returned when a colour string is not of the form
// "#RRGGBB".
var ErrInvalidColor = errors.New("gateway: invalid color format")

// Color is an RGB triplet as sent to the LED strip, one byte per channel.
type Color [3]byte

// ParseColor parses a "#RRGGBB" colour string into its channel bytes.
// Hex digits are accepted in either case; anything else, including
// shorthand or trailing characters, is rejected.
func ParseColor(s string) (Color, error) {
	var c Color
	if len(s) != 7 || s[0] != '#' {
		return c, fmt.Errorf("%w: %q (want \"#RRGGBB\")", ErrInvalidColor, s)
	}
	raw, err := hex.DecodeString(s[1:])
	if err != nil {
		return c, fmt.Errorf("%w: %q (want \"#RRGGBB\")", ErrInvalidColor, s)
	}
	copy(c[:], raw)
	return c, nil
}
