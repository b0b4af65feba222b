// Package timespec parses user-supplied clip time strings.
package timespec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidFormat reports a time string that is neither "S" nor "M:S".
var ErrInvalidFormat = errors.New("invalid time format")

// Parse converts a trimmed time string into seconds. Two colon-separated
// numeric parts are read as minutes:seconds; a single part is read as a
// plain second count. Anything else fails with ErrInvalidFormat.
//
// Negative values are not rejected here; callers enforce their own range
// checks before using the result.
func Parse(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("%w: empty input", ErrInvalidFormat)
	}

	if strings.Contains(value, ":") {
		parts := strings.Split(value, ":")
		if len(parts) != 2 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, value)
		}
		minutes, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, value)
		}
		seconds, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, value)
		}
		return minutes*60 + seconds, nil
	}

	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, value)
	}
	return seconds, nil
}

// Format renders a second count the way replies show it: whole seconds
// without a decimal point, fractional values with one.
func Format(seconds float64) string {
	if seconds == float64(int64(seconds)) {
		return strconv.FormatInt(int64(seconds), 10) + "s"
	}
	return strconv.FormatFloat(seconds, 'f', 1, 64) + "s"
}
