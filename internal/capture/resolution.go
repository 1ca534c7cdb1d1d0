package capture

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ratioTolerance is the allowed relative deviation from the expected ratio.
const ratioTolerance = 0.01

// Size is a width/height pair in pixels.
type Size struct {
	Width  int
	Height int
}

// ParseRatio parses a "W:H" aspect ratio string into W/H.
func ParseRatio(s string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid ratio %q: want W:H", s)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, fmt.Errorf("invalid ratio width %q: %w", parts[0], err)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, fmt.Errorf("invalid ratio height %q: %w", parts[1], err)
	}
	if w <= 0 || h <= 0 {
		return 0, fmt.Errorf("invalid ratio %q: components must be positive", s)
	}
	return float64(w) / float64(h), nil
}

// CheckResolution reports whether width x height matches ratio within 1% and
// is at least minSize in both dimensions. A zero minSize skips the size check.
func CheckResolution(width, height int, ratio string, minSize Size) (bool, error) {
	want, err := ParseRatio(ratio)
	if err != nil {
		return false, err
	}

	var actual float64
	if height != 0 {
		actual = float64(width) / float64(height)
	}

	if math.Abs(actual-want) > ratioTolerance*want {
		return false, nil
	}
	if width < minSize.Width || height < minSize.Height {
		return false, nil
	}
	return true, nil
}
