package extract

import (
	"strings"

	"github.com/xiaethan/sync/internal/schedule"
)

// Result holds the candidate intervals and location strings extracted from
// one message.
type Result struct {
	Intervals []schedule.TimeInterval `json:"intervals"`
	Locations []string                `json:"locations,omitempty"`
}

// timeStrategy is one candidate extractor in the ordered strategy chain.
type timeStrategy interface {
	name() string
	extract(text string) []schedule.TimeInterval
}

// Extractor turns raw message text into candidate intervals and locations.
// It is stateless and safe for concurrent use.
type Extractor struct {
	strategies []timeStrategy
}

// New creates an Extractor with the default strategy chain: explicit ranges,
// standalone times with context, then relative phrases.
func New() *Extractor {
	return &Extractor{
		strategies: []timeStrategy{
			rangeStrategy{},
			singleTimeStrategy{},
			relativePhraseStrategy{},
		},
	}
}

// Extract runs the strategy chain over text. The first strategy yielding at
// least one interval wins; the day-name fallback is applied on top of the
// winner. A weekday that contributed a weekday+period phrase interval is
// already covered, so the fallback skips it; weekdays alongside other
// winning strategies still get their fallback slot. When both intervals and
// locations were found, the first location is attached to every interval
// lacking one.
func (e *Extractor) Extract(text string) Result {
	lower := strings.ToLower(text)

	var intervals []schedule.TimeInterval
	var winner string
	for _, s := range e.strategies {
		if found := s.extract(lower); len(found) > 0 {
			intervals = found
			winner = s.name()
			break
		}
	}

	var skip map[string]bool
	if winner == (relativePhraseStrategy{}).name() {
		skip = phraseWeekdays(lower)
	}
	intervals = append(intervals, dayNameFallback(lower, skip)...)

	locations := extractLocations(text)
	if len(intervals) > 0 && len(locations) > 0 {
		for i := range intervals {
			if intervals[i].Location == "" {
				intervals[i].Location = locations[0]
			}
		}
	}

	return Result{Intervals: intervals, Locations: locations}
}
