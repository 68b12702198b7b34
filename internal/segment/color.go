package segment

import (
	"fmt"
	"image/color"
	"strings"

	"vectra/internal/services"
)

// NormalizeColor parses a "#rrggbb" or "rrggbb" string and returns the
// canonical lowercase "#rrggbb" form.
func NormalizeColor(value string) (string, error) {
	c, err := ParseColor(value)
	if err != nil {
		return "", err
	}
	return FormatColor(c), nil
}

// ParseColor converts a hex color string into an opaque NRGBA value.
func ParseColor(value string) (color.NRGBA, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(trimmed) != 6 {
		return color.NRGBA{}, services.Wrap(services.ErrValidation, "segment", "parse color", fmt.Sprintf("invalid color %q", value), nil)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(strings.ToLower(trimmed), "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.NRGBA{}, services.Wrap(services.ErrValidation, "segment", "parse color", fmt.Sprintf("invalid color %q", value), err)
	}
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// FormatColor renders a color as canonical lowercase "#rrggbb".
func FormatColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
