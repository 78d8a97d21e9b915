// Package aggregate computes ranked consensus windows from many
// participants' validated availability entries. The algorithm is fully
// deterministic and reproducible without external services; it also serves
// as the fallback and reference oracle for any alternate ranking backend.
package aggregate

import (
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/xiaethan/sync/internal/schedule"
)

// Config tunes the aggregator.
type Config struct {
	// MaxWindows caps the number of consensus windows returned.
	MaxWindows int

	// MinOverlapMinutes drops pairwise overlaps shorter than this. Zero
	// keeps every positive overlap.
	MinOverlapMinutes int

	// MinLocationParticipants is the distinct-participant threshold for a
	// location to appear in the result.
	MinLocationParticipants int
}

// DefaultConfig returns the standard aggregation configuration.
func DefaultConfig() Config {
	return Config{
		MaxWindows:              3,
		MinOverlapMinutes:       0,
		MinLocationParticipants: 2,
	}
}

// Aggregator combines validated entries into ranked consensus windows.
// It is stateless and safe for concurrent use.
type Aggregator struct {
	cfg    Config
	logger *zap.Logger
}

// New creates an Aggregator. A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) *Aggregator {
	if cfg.MaxWindows <= 0 {
		cfg.MaxWindows = DefaultConfig().MaxWindows
	}
	if cfg.MinLocationParticipants <= 0 {
		cfg.MinLocationParticipants = DefaultConfig().MinLocationParticipants
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{cfg: cfg, logger: logger}
}

// slot is one participant's interval in minute space.
type slot struct {
	participantID string
	displayName   string
	startMin      int
	endMin        int
}

// cluster accumulates the participants whose pairwise overlaps share the
// exact same (start, end) minute pair.
type cluster struct {
	startMin int
	endMin   int
	ids      []string
	names    []string
	member   map[string]bool
}

func (c *cluster) add(id, name string) {
	if c.member[id] {
		return
	}
	c.member[id] = true
	c.ids = append(c.ids, id)
	c.names = append(c.names, name)
}

// Aggregate computes ranked consensus windows and locations from validated
// entries. A single participant can never form a window: overlaps require
// two independent contributors. Zero entries yield an empty result with
// TotalParticipants 0.
func (a *Aggregator) Aggregate(entries []schedule.ValidatedEntry) schedule.AggregationResult {
	slots, total := flatten(entries)

	result := schedule.AggregationResult{
		Windows:           []schedule.ConsensusWindow{},
		TotalParticipants: total,
	}
	if total == 0 {
		return result
	}

	result.Windows = a.overlapWindows(slots, total)
	result.Locations = a.consensusLocations(entries, total)

	a.logger.Debug("aggregation complete",
		zap.Int("participants", total),
		zap.Int("windows", len(result.Windows)),
		zap.Int("locations", len(result.Locations)),
	)
	return result
}

// flatten turns entries into minute-space slots, deduplicating each
// participant's intervals across entries by identical start/end, and counts
// distinct participants.
func flatten(entries []schedule.ValidatedEntry) ([]slot, int) {
	var slots []slot
	participants := make(map[string]bool)
	seen := make(map[string]bool)

	for _, entry := range entries {
		participants[entry.ParticipantID] = true
		for _, iv := range entry.Intervals {
			startMin, err := schedule.ClockToMinutes(iv.Start)
			if err != nil {
				continue
			}
			endMin, err := schedule.ClockToMinutes(iv.End)
			if err != nil {
				continue
			}

			key := entry.ParticipantID + "\x00" + iv.Start + "\x00" + iv.End
			if seen[key] {
				continue
			}
			seen[key] = true

			slots = append(slots, slot{
				participantID: entry.ParticipantID,
				displayName:   entry.DisplayName,
				startMin:      startMin,
				endMin:        endMin,
			})
		}
	}
	return slots, len(participants)
}

// overlapWindows finds every pairwise overlap between slots of different
// participants, clusters them by their literal minute pair, and ranks the
// clusters.
func (a *Aggregator) overlapWindows(slots []slot, total int) []schedule.ConsensusWindow {
	clusters := make(map[[2]int]*cluster)
	var order [][2]int

	for i := 0; i < len(slots); i++ {
		for j := i + 1; j < len(slots); j++ {
			s1, s2 := slots[i], slots[j]
			if s1.participantID == s2.participantID {
				continue
			}

			overlapStart := max(s1.startMin, s2.startMin)
			overlapEnd := min(s1.endMin, s2.endMin)
			if overlapStart >= overlapEnd {
				continue
			}
			if overlapEnd-overlapStart < a.cfg.MinOverlapMinutes {
				continue
			}

			key := [2]int{overlapStart, overlapEnd}
			c, ok := clusters[key]
			if !ok {
				c = &cluster{
					startMin: overlapStart,
					endMin:   overlapEnd,
					member:   make(map[string]bool),
				}
				clusters[key] = c
				order = append(order, key)
			}
			c.add(s1.participantID, s1.displayName)
			c.add(s2.participantID, s2.displayName)
		}
	}

	windows := make([]schedule.ConsensusWindow, 0, len(order))
	for _, key := range order {
		c := clusters[key]
		windows = append(windows, schedule.ConsensusWindow{
			Start:            schedule.MinutesToClock(c.startMin),
			End:              schedule.MinutesToClock(c.endMin),
			ParticipantIDs:   c.ids,
			ParticipantNames: c.names,
			Confidence:       round2(float64(len(c.ids)) / float64(total)),
		})
	}

	sort.SliceStable(windows, func(i, j int) bool {
		if len(windows[i].ParticipantIDs) != len(windows[j].ParticipantIDs) {
			return len(windows[i].ParticipantIDs) > len(windows[j].ParticipantIDs)
		}
		if windows[i].Confidence != windows[j].Confidence {
			return windows[i].Confidence > windows[j].Confidence
		}
		if windows[i].Start != windows[j].Start {
			return windows[i].Start < windows[j].Start
		}
		return windows[i].End < windows[j].End
	})

	if len(windows) > a.cfg.MaxWindows {
		windows = windows[:a.cfg.MaxWindows]
	}
	return windows
}

// consensusLocations groups location mentions by case-normalized string
// across participants and keeps groups meeting the distinct-participant
// threshold.
func (a *Aggregator) consensusLocations(entries []schedule.ValidatedEntry, total int) []schedule.ConsensusLocation {
	type group struct {
		display string
		ids     []string
		member  map[string]bool
	}
	groups := make(map[string]*group)
	var order []string

	for _, entry := range entries {
		for _, loc := range entry.Locations {
			key := normalizeLocation(loc)
			if key == "" {
				continue
			}
			g, ok := groups[key]
			if !ok {
				g = &group{display: loc, member: make(map[string]bool)}
				groups[key] = g
				order = append(order, key)
			}
			if !g.member[entry.ParticipantID] {
				g.member[entry.ParticipantID] = true
				g.ids = append(g.ids, entry.ParticipantID)
			}
		}
	}

	var locations []schedule.ConsensusLocation
	for _, key := range order {
		g := groups[key]
		if len(g.ids) < a.cfg.MinLocationParticipants {
			continue
		}
		locations = append(locations, schedule.ConsensusLocation{
			Name:           g.display,
			ParticipantIDs: g.ids,
			Confidence:     round2(float64(len(g.ids)) / float64(total)),
		})
	}

	sort.SliceStable(locations, func(i, j int) bool {
		if len(locations[i].ParticipantIDs) != len(locations[j].ParticipantIDs) {
			return len(locations[i].ParticipantIDs) > len(locations[j].ParticipantIDs)
		}
		return locations[i].Name < locations[j].Name
	})
	return locations
}

func normalizeLocation(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
