package schedule

import "sort"

// Merge collapses a single message's candidate intervals into a minimal,
// sorted, non-overlapping set. Intervals that overlap or touch are combined:
// the end extends to the later end, confidence takes the maximum, and the
// first-assigned location wins. The input is not modified; output is
// deterministic for a given multiset of intervals.
func Merge(intervals []TimeInterval) []TimeInterval {
	if len(intervals) == 0 {
		return nil
	}

	// Lexicographic ordering on zero-padded HH:MM equals chronological
	// ordering, so a plain string sort is enough.
	sorted := make([]TimeInterval, len(intervals))
	copy(sorted, intervals)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	merged := make([]TimeInterval, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if next.Start <= current.End {
			if next.End > current.End {
				current.End = next.End
			}
			if next.Confidence > current.Confidence {
				current.Confidence = next.Confidence
			}
			if current.Location == "" {
				current.Location = next.Location
			}
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}
