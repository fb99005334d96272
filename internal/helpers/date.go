package helpers

import (
	"fmt"
	"time"
)

// FormatDateString formats a timestamp string in a CLI-friendly relative
// format similar to Docker and Kubernetes tools ("2 minutes ago").
func FormatDateString(dateString string) (string, error) {
	return FormatDateStringWithLocation(dateString, time.Local)
}

// FormatDateStringWithLocation formats a timestamp string for the specified
// timezone. Accepts the compact 20060102150405 run-ID format and RFC 3339.
func FormatDateStringWithLocation(dateString string, loc *time.Location) (string, error) {
	var t time.Time
	var err error

	if len(dateString) == 14 {
		t, err = time.ParseInLocation("20060102150405", dateString, loc)
	} else {
		layouts := []string{time.RFC3339, time.RFC3339Nano}
		for _, layout := range layouts {
			t, err = time.Parse(layout, dateString)
			if err == nil {
				break
			}
		}
	}
	if err != nil {
		return "", fmt.Errorf("failed to parse date string %q: %w", dateString, err)
	}

	elapsed := time.Now().In(loc).Sub(t.In(loc))
	if elapsed < 0 {
		return formatDuration(-elapsed) + " from now", nil
	}
	return formatDuration(elapsed) + " ago", nil
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return plural(int(d.Seconds()), "second")
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	default:
		return plural(int(d.Hours())/24, "day")
	}
}

func plural(n int, unit string) string {
	if n <= 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
