package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidClock reports whether s is a zero-padded 24-hour "HH:MM" clock value.
func ValidClock(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	hour, err := strconv.Atoi(s[:2])
	if err != nil {
		return false
	}
	minute, err := strconv.Atoi(s[3:])
	if err != nil {
		return false
	}
	return hour >= 0 && hour < 24 && minute >= 0 && minute < 60
}

// ClockToMinutes converts an "HH:MM" clock value to minutes since midnight.
func ClockToMinutes(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", s, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}
	return hour*60 + minute, nil
}

// MinutesToClock converts minutes since midnight to an "HH:MM" clock value.
func MinutesToClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
