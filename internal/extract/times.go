package extract

import (
	"regexp"

	"github.com/xiaethan/sync/internal/schedule"
)

const (
	rangeConfidence  = 0.9
	singleConfidence = 0.7

	contextBefore = 20
	contextAfter  = 30
)

var (
	// H[:MM][am|pm] <sep> H[:MM][am|pm] with "-", en-dash, em-dash, or "to".
	reTimeRange = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\s*(?:-|–|—|to)\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)

	// Standalone H[:MM]am|pm occurrence; the meridiem is mandatory here.
	reSingleTime = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)

	reCtxAfter  = regexp.MustCompile(`\b(after|from)\b`)
	reCtxBefore = regexp.MustCompile(`\b(before|until)\b`)
	reCtxAround = regexp.MustCompile(`\b(around|at)\b`)
)

// rangeStrategy matches explicit time ranges. A missing am/pm marker on one
// endpoint inherits the other endpoint's marker; in particular the end's
// marker propagates backward to a bare start ("7 - 9pm" is 19:00-21:00).
type rangeStrategy struct{}

func (rangeStrategy) name() string { return "explicit_range" }

func (rangeStrategy) extract(text string) []schedule.TimeInterval {
	var intervals []schedule.TimeInterval
	for _, m := range reTimeRange.FindAllStringSubmatch(text, -1) {
		startMeridiem, endMeridiem := m[3], m[6]
		if startMeridiem == "" {
			startMeridiem = endMeridiem
		}
		if endMeridiem == "" {
			endMeridiem = startMeridiem
		}

		start, ok := normalizeClock(m[1], m[2], startMeridiem)
		if !ok {
			continue
		}
		end, ok := normalizeClock(m[4], m[5], endMeridiem)
		if !ok {
			continue
		}

		intervals = append(intervals, schedule.TimeInterval{
			Start:      start,
			End:        end,
			Confidence: rangeConfidence,
		})
	}
	return intervals
}

// singleTimeStrategy matches standalone times and infers a window from the
// surrounding context: a fixed slice of text before and after the match is
// classified by keyword.
type singleTimeStrategy struct{}

func (singleTimeStrategy) name() string { return "single_time" }

func (singleTimeStrategy) extract(text string) []schedule.TimeInterval {
	var intervals []schedule.TimeInterval
	for _, idx := range reSingleTime.FindAllStringSubmatchIndex(text, -1) {
		hour := text[idx[2]:idx[3]]
		minute := ""
		if idx[4] >= 0 {
			minute = text[idx[4]:idx[5]]
		}
		meridiem := text[idx[6]:idx[7]]

		clock, ok := normalizeClock(hour, minute, meridiem)
		if !ok {
			continue
		}

		ctxStart := idx[0] - contextBefore
		if ctxStart < 0 {
			ctxStart = 0
		}
		ctxEnd := idx[1] + contextAfter
		if ctxEnd > len(text) {
			ctxEnd = len(text)
		}
		context := text[ctxStart:ctxEnd]

		var start, end string
		switch {
		case reCtxAfter.MatchString(context):
			start, end = clock, shiftHours(clock, 4)
		case reCtxBefore.MatchString(context):
			start, end = shiftHours(clock, -4), clock
		case reCtxAround.MatchString(context):
			start, end = shiftHours(clock, -1), shiftHours(clock, 2)
		default:
			start, end = clock, shiftHours(clock, 2)
		}

		intervals = append(intervals, schedule.TimeInterval{
			Start:      start,
			End:        end,
			Confidence: singleConfidence,
		})
	}
	return intervals
}
