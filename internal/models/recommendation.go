package models

import "time"

// Candidate is a transient (room, start) pairing produced during one
// scheduling call. It is never persisted.
type Candidate struct {
	Room           Room
	Start          time.Time
	Score          float64
	ShiftMinutes   float64
	WastedCapacity int
	CostPerMinute  float64
}

// RoomOption is an alternative (room, time) pairing offered alongside the
// recommendation.
type RoomOption struct {
	Room Room      `json:"room"`
	Time time.Time `json:"time"`
}

// ScoreSample captures one scored candidate for observability.
type ScoreSample struct {
	RoomID string    `json:"room_id"`
	Score  float64   `json:"score"`
	Start  time.Time `json:"start"`
}

// Diagnostics summarises what the engine considered. PreemptableConflicts
// counts conflicts where the incoming request outranked the existing booking;
// the engine records the comparison but never acts on it.
type Diagnostics struct {
	ScoredCount          int           `json:"scored_count"`
	PreemptableConflicts int           `json:"preemptable_conflicts"`
	TopScores            []ScoreSample `json:"top_scores"`
}

// Recommendation is the engine's result. A nil Room with empty alternatives
// is the normal "no feasible candidate" outcome, not an error.
type Recommendation struct {
	Room             *Room        `json:"room,omitempty"`
	Start            *time.Time   `json:"start,omitempty"`
	Alternatives     []RoomOption `json:"alternatives"`
	CostOptimization float64      `json:"cost_optimization"`
	Diagnostics      Diagnostics  `json:"diagnostics"`
}
