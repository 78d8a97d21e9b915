package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xiaethan/sync/internal/schedule"
)

// normalizeClock converts a 12-hour clock reading to a zero-padded 24-hour
// "HH:MM" value. PM hours other than 12 gain twelve, 12am becomes 00, and
// minutes default to 00. Hour values outside 1..12 mean the match was
// malformed; they are rejected rather than propagated.
func normalizeClock(hourStr, minuteStr, meridiem string) (string, bool) {
	hour, err := strconv.Atoi(hourStr)
	if err != nil {
		return "", false
	}
	if hour < 1 || hour > 12 {
		return "", false
	}

	minute := 0
	if minuteStr != "" {
		minute, err = strconv.Atoi(minuteStr)
		if err != nil || minute > 59 {
			return "", false
		}
	}

	switch strings.ToLower(meridiem) {
	case "pm":
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

// shiftHours moves a clock value by delta whole hours, wrapping modulo 24.
// No day boundary is tracked.
func shiftHours(clock string, delta int) string {
	minutes, err := schedule.ClockToMinutes(clock)
	if err != nil {
		return clock
	}
	hour := ((minutes/60+delta)%24 + 24) % 24
	return fmt.Sprintf("%02d:%02d", hour, minutes%60)
}
