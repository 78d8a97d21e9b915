// Package ics renders consensus windows as iCalendar payloads.
package ics

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xiaethan/sync/internal/schedule"
)

const (
	prodID     = "-//sync//availability//EN"
	timeLayout = "20060102T150405Z"
)

// Event describes one calendar event built from a consensus window.
type Event struct {
	Title  string
	Date   time.Time
	Window schedule.ConsensusWindow
}

// Render emits a single-event VCALENDAR for the event. The window's
// clock times are placed on the event's date in UTC.
func Render(ev Event) (string, error) {
	start, err := onDate(ev.Date, ev.Window.Start)
	if err != nil {
		return "", fmt.Errorf("invalid window start: %w", err)
	}
	end, err := onDate(ev.Date, ev.Window.End)
	if err != nil {
		return "", fmt.Errorf("invalid window end: %w", err)
	}

	title := ev.Title
	if title == "" {
		title = "Group availability"
	}

	var b strings.Builder
	line(&b, "BEGIN:VCALENDAR")
	line(&b, "VERSION:2.0")
	line(&b, "PRODID:"+prodID)
	line(&b, "METHOD:PUBLISH")
	line(&b, "BEGIN:VEVENT")
	line(&b, "UID:"+uuid.New().String())
	line(&b, "DTSTAMP:"+time.Now().UTC().Format(timeLayout))
	line(&b, "DTSTART:"+start.Format(timeLayout))
	line(&b, "DTEND:"+end.Format(timeLayout))
	line(&b, "SUMMARY:"+escape(title))
	if ev.Window.Location != "" {
		line(&b, "LOCATION:"+escape(ev.Window.Location))
	}
	for _, name := range ev.Window.ParticipantNames {
		line(&b, "ATTENDEE;CN="+escape(name)+":invalid:nomail")
	}
	line(&b, "END:VEVENT")
	line(&b, "END:VCALENDAR")
	return b.String(), nil
}

// onDate combines an HH:MM clock with a date at UTC midnight.
func onDate(date time.Time, clock string) (time.Time, error) {
	minutes, err := schedule.ClockToMinutes(clock)
	if err != nil {
		return time.Time{}, err
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return day.Add(time.Duration(minutes) * time.Minute), nil
}

// line writes a content line with the CRLF terminator RFC 5545 requires.
func line(b *strings.Builder, s string) {
	b.WriteString(s)
	b.WriteString("\r\n")
}

// escape applies RFC 5545 text escaping.
func escape(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		";", `\;`,
		",", `\,`,
		"\n", `\n`,
	)
	return r.Replace(s)
}
