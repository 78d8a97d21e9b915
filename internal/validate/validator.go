// Package validate classifies participant entries as valid or flagged
// before aggregation. It filters malformed or low-confidence intervals and
// never reorders, renames, or fabricates anything: every interval it keeps
// is passed through unchanged.
package validate

import (
	"go.uber.org/zap"

	"github.com/xiaethan/sync/internal/schedule"
)

// Flag values attached to flagged entries.
const (
	FlagMissingParticipantID = "missing_participant_id"
	FlagNoTimeSlots          = "no_time_slots"
	FlagNoValidSlots         = "no_valid_slots"
	FlagSlotLowConfidence    = "slot_low_confidence"
	FlagSlotInvalidFormat    = "slot_invalid_time_format"
	FlagSlotInvalidRange     = "slot_invalid_time_range"
	FlagSlotRangeTooLarge    = "slot_range_too_large"
)

// Config tunes the validator.
type Config struct {
	// MinConfidence is the minimum extraction confidence for an interval
	// to survive validation.
	MinConfidence float64

	// MaxRangeHours flags intervals longer than this many hours.
	MaxRangeHours float64
}

// DefaultConfig returns the standard validation thresholds.
func DefaultConfig() Config {
	return Config{
		MinConfidence: 0.5,
		MaxRangeHours: 24,
	}
}

// Outcome splits entries by validation result. Flagged entries are excluded
// from aggregation input.
type Outcome struct {
	Validated []schedule.ValidatedEntry `json:"validated"`
	Flagged   []schedule.ValidatedEntry `json:"flagged"`
}

// Validator checks participant entries against the configured thresholds.
// It is stateless and safe for concurrent use.
type Validator struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a Validator. A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) *Validator {
	if cfg.MinConfidence == 0 {
		cfg.MinConfidence = DefaultConfig().MinConfidence
	}
	if cfg.MaxRangeHours == 0 {
		cfg.MaxRangeHours = DefaultConfig().MaxRangeHours
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{cfg: cfg, logger: logger}
}

// Validate classifies each entry independently, preserving input order
// within each outcome list.
func (v *Validator) Validate(entries []schedule.ParticipantEntry) Outcome {
	var out Outcome
	for _, entry := range entries {
		validated := v.validateEntry(entry)
		if validated.Status == schedule.StatusValid {
			out.Validated = append(out.Validated, validated)
		} else {
			out.Flagged = append(out.Flagged, validated)
			v.logger.Debug("flagged entry",
				zap.String("participant_id", entry.ParticipantID),
				zap.Strings("flags", validated.Flags),
			)
		}
	}
	return out
}

func (v *Validator) validateEntry(entry schedule.ParticipantEntry) schedule.ValidatedEntry {
	var flags []string

	if entry.ParticipantID == "" {
		flags = append(flags, FlagMissingParticipantID)
	}
	if len(entry.Intervals) == 0 {
		flags = append(flags, FlagNoTimeSlots)
	}

	var clean []schedule.TimeInterval
	for _, iv := range entry.Intervals {
		slotFlags := v.validateSlot(iv)
		if len(slotFlags) == 0 {
			clean = append(clean, iv)
			continue
		}
		flags = append(flags, slotFlags...)
	}

	if len(clean) == 0 && len(entry.Intervals) > 0 {
		flags = append(flags, FlagNoValidSlots)
	}

	status := schedule.StatusFlagged
	if len(flags) == 0 && len(clean) > 0 {
		status = schedule.StatusValid
	}

	return schedule.ValidatedEntry{
		ParticipantID: entry.ParticipantID,
		DisplayName:   entry.DisplayName,
		Intervals:     clean,
		Locations:     entry.Locations,
		Status:        status,
		Flags:         flags,
	}
}

// validateSlot returns the flags for a single interval, empty when valid.
func (v *Validator) validateSlot(iv schedule.TimeInterval) []string {
	var flags []string

	if iv.Confidence < v.cfg.MinConfidence {
		flags = append(flags, FlagSlotLowConfidence)
	}

	startMin, errStart := schedule.ClockToMinutes(iv.Start)
	endMin, errEnd := schedule.ClockToMinutes(iv.End)
	if errStart != nil || errEnd != nil || !schedule.ValidClock(iv.Start) || !schedule.ValidClock(iv.End) {
		return append(flags, FlagSlotInvalidFormat)
	}

	// Intervals are same-day and non-wrapping: start must precede end.
	if startMin >= endMin {
		flags = append(flags, FlagSlotInvalidRange)
		return flags
	}

	if float64(endMin-startMin)/60.0 > v.cfg.MaxRangeHours {
		flags = append(flags, FlagSlotRangeTooLarge)
	}

	return flags
}
