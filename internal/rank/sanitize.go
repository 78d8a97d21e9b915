package rank

import (
	"github.com/xiaethan/sync/internal/schedule"
)

// Sanitize scrubs an LLM ranking against the deterministic result. The
// LLM output is untrusted: clock strings, confidences, and participant
// ids all get checked before a window survives. When nothing survives
// but the deterministic aggregation produced at least one window, the
// deterministic result wins.
func Sanitize(ranked, deterministic schedule.AggregationResult) schedule.AggregationResult {
	out := schedule.AggregationResult{
		Windows:           []schedule.ConsensusWindow{},
		Locations:         []schedule.ConsensusLocation{},
		TotalParticipants: deterministic.TotalParticipants,
	}

	for _, w := range ranked.Windows {
		if !schedule.ValidClock(w.Start) || !schedule.ValidClock(w.End) {
			continue
		}
		if w.Start >= w.End {
			continue
		}
		w.Confidence = clamp01(w.Confidence)
		w.ParticipantIDs = dedupeStrings(w.ParticipantIDs)
		w.ParticipantNames = dedupeStrings(w.ParticipantNames)
		if len(w.ParticipantIDs) == 0 {
			continue
		}
		out.Windows = append(out.Windows, w)
	}

	for _, l := range ranked.Locations {
		if l.Name == "" {
			continue
		}
		l.Confidence = clamp01(l.Confidence)
		l.ParticipantIDs = dedupeStrings(l.ParticipantIDs)
		out.Locations = append(out.Locations, l)
	}

	if len(out.Windows) == 0 && len(deterministic.Windows) > 0 {
		return deterministic
	}
	return out
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
