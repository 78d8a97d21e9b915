package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaethan/sync/internal/schedule"
)

func TestValidate_ValidEntryPassesThroughUnchanged(t *testing.T) {
	v := New(DefaultConfig(), nil)

	entry := schedule.ParticipantEntry{
		ParticipantID: "U1",
		DisplayName:   "Ana",
		RawText:       "free after 7pm at the library",
		Intervals:     []schedule.TimeInterval{{Start: "19:00", End: "23:00", Confidence: 0.7, Location: "library"}},
		Locations:     []string{"library"},
	}

	out := v.Validate([]schedule.ParticipantEntry{entry})

	require.Len(t, out.Validated, 1)
	assert.Empty(t, out.Flagged)

	got := out.Validated[0]
	assert.Equal(t, schedule.StatusValid, got.Status)
	assert.Equal(t, "U1", got.ParticipantID)
	assert.Equal(t, "Ana", got.DisplayName)
	assert.Equal(t, entry.Intervals, got.Intervals)
	assert.Equal(t, entry.Locations, got.Locations)
	assert.Empty(t, got.Flags)
}

func TestValidate_Flags(t *testing.T) {
	v := New(DefaultConfig(), nil)

	tests := []struct {
		name     string
		entry    schedule.ParticipantEntry
		wantFlag string
	}{
		{
			name: "missing participant id",
			entry: schedule.ParticipantEntry{
				Intervals: []schedule.TimeInterval{{Start: "10:00", End: "12:00", Confidence: 0.9}},
			},
			wantFlag: FlagMissingParticipantID,
		},
		{
			name:     "no intervals",
			entry:    schedule.ParticipantEntry{ParticipantID: "U1"},
			wantFlag: FlagNoTimeSlots,
		},
		{
			name: "low confidence",
			entry: schedule.ParticipantEntry{
				ParticipantID: "U1",
				Intervals:     []schedule.TimeInterval{{Start: "10:00", End: "12:00", Confidence: 0.3}},
			},
			wantFlag: FlagSlotLowConfidence,
		},
		{
			name: "invalid clock format",
			entry: schedule.ParticipantEntry{
				ParticipantID: "U1",
				Intervals:     []schedule.TimeInterval{{Start: "10am", End: "12:00", Confidence: 0.9}},
			},
			wantFlag: FlagSlotInvalidFormat,
		},
		{
			name: "wrapping range rejected",
			entry: schedule.ParticipantEntry{
				ParticipantID: "U1",
				Intervals:     []schedule.TimeInterval{{Start: "22:00", End: "02:00", Confidence: 0.9}},
			},
			wantFlag: FlagSlotInvalidRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := v.Validate([]schedule.ParticipantEntry{tt.entry})

			require.Len(t, out.Flagged, 1)
			assert.Empty(t, out.Validated)
			assert.Contains(t, out.Flagged[0].Flags, tt.wantFlag)
			assert.Equal(t, schedule.StatusFlagged, out.Flagged[0].Status)
		})
	}
}

func TestValidate_RangeTooLarge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRangeHours = 8
	v := New(cfg, nil)

	out := v.Validate([]schedule.ParticipantEntry{{
		ParticipantID: "U1",
		Intervals:     []schedule.TimeInterval{{Start: "08:00", End: "20:00", Confidence: 0.9}},
	}})

	require.Len(t, out.Flagged, 1)
	assert.Contains(t, out.Flagged[0].Flags, FlagSlotRangeTooLarge)
}

func TestValidate_MixedSlotsFlagWholeEntry(t *testing.T) {
	v := New(DefaultConfig(), nil)

	// One bad slot flags the entry even though a clean slot remains; the
	// clean slot is still reported in the flagged entry.
	out := v.Validate([]schedule.ParticipantEntry{{
		ParticipantID: "U1",
		Intervals: []schedule.TimeInterval{
			{Start: "10:00", End: "12:00", Confidence: 0.9},
			{Start: "14:00", End: "13:00", Confidence: 0.9},
		},
	}})

	require.Len(t, out.Flagged, 1)
	assert.Equal(t, []schedule.TimeInterval{{Start: "10:00", End: "12:00", Confidence: 0.9}}, out.Flagged[0].Intervals)
	assert.Contains(t, out.Flagged[0].Flags, FlagSlotInvalidRange)
}

func TestValidate_PreservesOrder(t *testing.T) {
	v := New(DefaultConfig(), nil)

	entries := []schedule.ParticipantEntry{
		{ParticipantID: "U1", Intervals: []schedule.TimeInterval{{Start: "10:00", End: "12:00", Confidence: 0.9}}},
		{ParticipantID: "U2"},
		{ParticipantID: "U3", Intervals: []schedule.TimeInterval{{Start: "14:00", End: "16:00", Confidence: 0.9}}},
	}

	out := v.Validate(entries)

	require.Len(t, out.Validated, 2)
	assert.Equal(t, "U1", out.Validated[0].ParticipantID)
	assert.Equal(t, "U3", out.Validated[1].ParticipantID)
	require.Len(t, out.Flagged, 1)
	assert.Equal(t, "U2", out.Flagged[0].ParticipantID)
}
