package schedule

import "time"

// TimeInterval is a same-day, non-wrapping availability window. Start and
// End are wall-clock times in zero-padded 24-hour "HH:MM" form, so
// lexicographic ordering on them equals chronological ordering.
type TimeInterval struct {
	Start      string  `json:"start"`
	End        string  `json:"end"`
	Confidence float64 `json:"confidence"`
	Location   string  `json:"location,omitempty"`
}

// Message is a single chat message as delivered by a message source.
type Message struct {
	ParticipantID string    `json:"participant_id"`
	DisplayName   string    `json:"display_name"`
	Text          string    `json:"text"`
	Timestamp     time.Time `json:"timestamp"`
}

// ParticipantEntry is one participant's message reduced to normalized
// intervals and location mentions. A participant may contribute multiple
// entries over a session; each is processed independently.
type ParticipantEntry struct {
	ParticipantID string         `json:"participant_id"`
	DisplayName   string         `json:"display_name"`
	RawText       string         `json:"raw_text"`
	Intervals     []TimeInterval `json:"intervals"`
	Locations     []string       `json:"locations,omitempty"`
}

// EntryStatus classifies a validated entry.
type EntryStatus string

const (
	StatusValid   EntryStatus = "valid"
	StatusFlagged EntryStatus = "flagged"
)

// ValidatedEntry is a ParticipantEntry restricted to intervals and locations
// that passed validation, tagged with the validation outcome. Flagged entries
// carry the reasons in Flags and are excluded from aggregation.
type ValidatedEntry struct {
	ParticipantID string         `json:"participant_id"`
	DisplayName   string         `json:"display_name"`
	Intervals     []TimeInterval `json:"intervals"`
	Locations     []string       `json:"locations,omitempty"`
	Status        EntryStatus    `json:"status"`
	Flags         []string       `json:"flags,omitempty"`
}

// ConsensusWindow is a time interval where two or more participants'
// availability overlaps. ParticipantIDs has no duplicates and matches
// ParticipantNames in size and order.
type ConsensusWindow struct {
	Start            string   `json:"start"`
	End              string   `json:"end"`
	ParticipantIDs   []string `json:"participant_ids"`
	ParticipantNames []string `json:"participant_names"`
	Confidence       float64  `json:"confidence"`
	Location         string   `json:"location,omitempty"`
}

// ConsensusLocation is a location mentioned by two or more participants.
type ConsensusLocation struct {
	Name           string   `json:"name"`
	ParticipantIDs []string `json:"participant_ids"`
	Confidence     float64  `json:"confidence"`
}

// AggregationResult is the ranked output of one aggregation run. Windows are
// sorted by participant count descending, then confidence descending.
type AggregationResult struct {
	Windows           []ConsensusWindow   `json:"windows"`
	Locations         []ConsensusLocation `json:"locations,omitempty"`
	TotalParticipants int                 `json:"total_participants"`
}
