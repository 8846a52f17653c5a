package helpers

import (
	"fmt"
	"time"
)

// timestampLayouts are the formats timestamps reach the CLI in: JSON encoded times and
// SQLite CURRENT_TIMESTAMP values.
var timestampLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// RelativeTimeString parses a timestamp and formats it relative to now, e.g. "3 hours ago".
func RelativeTimeString(timestamp string, now time.Time) (string, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, timestamp); err == nil {
			return RelativeTime(t, now), nil
		}
	}
	return "", fmt.Errorf("failed to parse timestamp %q", timestamp)
}

// RelativeTime formats t relative to now, similar to docker and kubectl output.
func RelativeTime(t, now time.Time) string {
	elapsed := now.Sub(t)
	if elapsed < 0 {
		return formatDuration(-elapsed) + " from now"
	}
	return formatDuration(elapsed) + " ago"
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func formatDuration(d time.Duration) string {
	const day = 24 * time.Hour
	switch {
	case d < time.Minute:
		return plural(max(int(d.Seconds()), 1), "second")
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < day:
		return plural(int(d.Hours()), "hour")
	case d < 30*day:
		return plural(int(d/day), "day")
	case d < 365*day:
		return plural(int(d/(30*day)), "month")
	default:
		return plural(int(d/(365*day)), "year")
	}
}
