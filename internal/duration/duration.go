// Package duration provides parsing for human-readable duration strings.
package duration

import (
	"fmt"
	"time"
)

// Parse parses durations such as "90s", "10m", "1h30m" as well as the day
// and week forms "1d" and "2w" that time.ParseDuration rejects.
// An empty string parses as zero, meaning no limit.
func Parse(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("negative duration: %s", s)
		}
		return d, nil
	}

	var n int
	var unit string
	if _, err := fmt.Sscanf(s, "%d%s", &n, &unit); err != nil {
		return 0, fmt.Errorf("invalid duration format: %s (use e.g., 90s, 10m, 1h, 1d)", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative duration: %s", s)
	}

	switch unit {
	case "d", "day", "days":
		return time.Duration(n) * 24 * time.Hour, nil
	case "w", "wk", "wks", "week", "weeks":
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown duration unit: %s", unit)
	}
}
