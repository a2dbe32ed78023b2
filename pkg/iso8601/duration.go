// Package iso8601 provides parsing and formatting for the compact ISO 8601
// duration tokens used by flight APIs (e.g. "PT2H30M").
package iso8601

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrMalformedDuration is returned when a token does not match the
// PT[nH][nM][nS] grammar.
var ErrMalformedDuration = errors.New("malformed ISO 8601 duration")

// Durations come in as PT2H30M, PT5H, PT45M, PT1H15M30S and similar.
var durationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ParseDuration parses an ISO 8601 time-duration token into a time.Duration.
// Hours, minutes and seconds components are all optional, but the "PT" prefix
// is required. Date components (days, weeks) are not supported.
func ParseDuration(token string) (time.Duration, error) {
	match := durationPattern.FindStringSubmatch(token)
	if match == nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedDuration, token)
	}

	hours, err := componentValue(match[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedDuration, token)
	}
	minutes, err := componentValue(match[2])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedDuration, token)
	}
	seconds, err := componentValue(match[3])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedDuration, token)
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second, nil
}

// componentValue converts a captured digit group to an int.
// An absent group means zero.
func componentValue(group string) (int64, error) {
	if group == "" {
		return 0, nil
	}
	return strconv.ParseInt(group, 10, 64)
}

// FormatDuration renders a duration as a compact human-readable string,
// e.g. "2h 30m", "45m" or "1d 2h 0m" for multi-day totals.
func FormatDuration(d time.Duration) string {
	totalMinutes := int(d / time.Minute)
	hours, minutes := totalMinutes/60, totalMinutes%60
	days, hours := hours/24, hours%24

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
