package extract

import (
	"strings"

	"github.com/xiaethan/sync/internal/schedule"
)

const (
	phraseConfidence        = 0.8
	weekdayPhraseConfidence = 0.7
	fallbackConfidence      = 0.6

	fallbackStart = "14:00"
	fallbackEnd   = "20:00"
)

var weekdays = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// periods maps a time-of-day word to its fixed clock range. The ranges are
// intentionally coarse; they mirror the assumed single-day use of the
// relative-phrase table.
var periods = []struct {
	word  string
	start string
	end   string
}{
	{word: "morning", start: "08:00", end: "12:00"},
	{word: "afternoon", start: "12:00", end: "17:00"},
	{word: "evening", start: "17:00", end: "22:00"},
}

// relativePhraseStrategy matches a fixed table of phrase combinations.
// Lookups are independent and cumulative: multiple phrases in one message
// each contribute a slot.
type relativePhraseStrategy struct{}

func (relativePhraseStrategy) name() string { return "relative_phrase" }

func (relativePhraseStrategy) extract(text string) []schedule.TimeInterval {
	var intervals []schedule.TimeInterval

	if containsWord(text, "tonight") {
		intervals = append(intervals, schedule.TimeInterval{
			Start: "19:00", End: "23:00", Confidence: phraseConfidence,
		})
	}

	if containsWord(text, "tomorrow") {
		for _, p := range periods {
			if containsWord(text, p.word) {
				intervals = append(intervals, schedule.TimeInterval{
					Start: p.start, End: p.end, Confidence: phraseConfidence,
				})
			}
		}
	}

	for _, day := range weekdays {
		if !containsWord(text, day) {
			continue
		}
		for _, p := range periods {
			if containsWord(text, p.word) {
				intervals = append(intervals, schedule.TimeInterval{
					Start: p.start, End: p.end, Confidence: weekdayPhraseConfidence,
				})
			}
		}
	}

	return intervals
}

// phraseWeekdays returns the weekdays that combined with a period word
// into a weekday+period interval. Callers use it to suppress the day-name
// fallback for exactly those weekdays.
func phraseWeekdays(text string) map[string]bool {
	periodPresent := false
	for _, p := range periods {
		if containsWord(text, p.word) {
			periodPresent = true
			break
		}
	}
	if !periodPresent {
		return nil
	}

	matched := make(map[string]bool)
	for _, day := range weekdays {
		if containsWord(text, day) {
			matched[day] = true
		}
	}
	return matched
}

// dayNameFallback emits a low-precision default slot for every weekday name
// in the text, skipping weekdays in skip. It is applied in addition to
// whichever strategy won.
func dayNameFallback(text string, skip map[string]bool) []schedule.TimeInterval {
	var intervals []schedule.TimeInterval
	for _, day := range weekdays {
		if !containsWord(text, day) || skip[day] {
			continue
		}
		intervals = append(intervals, schedule.TimeInterval{
			Start: fallbackStart, End: fallbackEnd, Confidence: fallbackConfidence,
		})
	}
	return intervals
}

// containsWord reports whether word occurs in text bounded by non-letters.
// text and word are assumed lowercase.
func containsWord(text, word string) bool {
	for from := 0; from < len(text); {
		i := strings.Index(text[from:], word)
		if i < 0 {
			return false
		}
		i += from
		before := i == 0 || !isLetter(text[i-1])
		afterIdx := i + len(word)
		after := afterIdx >= len(text) || !isLetter(text[afterIdx])
		if before && after {
			return true
		}
		from = i + 1
	}
	return false
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
