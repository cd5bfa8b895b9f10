package theme

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// ParseHex reads a #rgb or #rrggbb color, with or without the leading '#'.
func ParseHex(hex string) (r, g, b uint8, err error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")

	switch len(s) {
	case 3:
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	case 6:
	default:
		return 0, 0, 0, errors.Errorf("invalid hex color %q", hex)
	}

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, errors.Errorf("invalid hex color %q: %w", hex, err)
	}

	return uint8(v >> 16), uint8(v >> 8), uint8(v), nil
}

// FormatHex writes a lower-case #rrggbb color.
func FormatHex(r, g, b uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// Lighten raises every channel of hex by round(255*amount), clamped to
// [0,255]. A negative amount darkens.
func Lighten(hex string, amount float64) (string, error) {
	r, g, b, err := ParseHex(hex)
	if err != nil {
		return "", err
	}

	delta := int(math.Round(255 * amount))
	shift := func(c uint8) uint8 {
		v := int(c) + delta
		if v < 0 {
			return 0
		}
		if v > 255 {
			return 255
		}
		return uint8(v)
	}

	return FormatHex(shift(r), shift(g), shift(b)), nil
}
