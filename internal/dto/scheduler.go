package dto

import (
	"time"

	"github.com/roomly/roombook-api/internal/models"
)

// FindOptimalRequest asks the engine for a room and start time recommendation.
// Instants are RFC 3339 with offsets; naive local times are rejected at bind.
type FindOptimalRequest struct {
	Organizer          string    `json:"organizer" validate:"required"`
	OrganizerRole      string    `json:"organizerRole" validate:"omitempty,oneof=employee admin ceo"`
	Attendees          []string  `json:"attendees" validate:"required,min=1"`
	Duration           int       `json:"duration" validate:"required,min=1"`
	RequiredEquipment  []string  `json:"requiredEquipment"`
	PreferredStartTime time.Time `json:"preferredStartTime" validate:"required"`
	Flexibility        int       `json:"flexibility" validate:"min=0"`
	Priority           string    `json:"priority" validate:"required,oneof=low normal high urgent"`
}

// ToModel converts the payload into the engine-facing request.
func (r FindOptimalRequest) ToModel() models.MeetingRequest {
	role := models.OrganizerRole(r.OrganizerRole)
	if role == "" {
		role = models.RoleEmployee
	}
	return models.MeetingRequest{
		Organizer:          r.Organizer,
		OrganizerRole:      role,
		Attendees:          r.Attendees,
		DurationMinutes:    r.Duration,
		RequiredEquipment:  r.RequiredEquipment,
		PreferredStart:     r.PreferredStartTime,
		FlexibilityMinutes: r.Flexibility,
		Priority:           models.Priority(r.Priority),
	}
}

// AlternativeOption is a runner-up (room, time) pairing.
type AlternativeOption struct {
	Room models.Room `json:"room"`
	Time time.Time   `json:"time"`
}

// TopScore is one entry of the scored-candidate preview.
type TopScore struct {
	RoomID string    `json:"roomId"`
	Score  float64   `json:"score"`
	Start  time.Time `json:"start"`
}

// DebugInfo carries engine diagnostics for observability and demos.
type DebugInfo struct {
	ScoredCount          int        `json:"scoredCount"`
	PreemptableConflicts int        `json:"preemptableConflicts"`
	TopScores            []TopScore `json:"topScores"`
}

// FindOptimalResponse mirrors the engine recommendation. A null room with
// empty alternatives means no feasible candidate was found.
type FindOptimalResponse struct {
	RecommendedRoom    *models.Room        `json:"recommendedRoom"`
	SuggestedTime      *time.Time          `json:"suggestedTime"`
	AlternativeOptions []AlternativeOption `json:"alternativeOptions"`
	CostOptimization   float64             `json:"costOptimization"`
	Debug              DebugInfo           `json:"debug"`
}

// FromRecommendation maps the engine result onto the wire shape.
func FromRecommendation(rec models.Recommendation) *FindOptimalResponse {
	resp := &FindOptimalResponse{
		RecommendedRoom:    rec.Room,
		SuggestedTime:      rec.Start,
		AlternativeOptions: make([]AlternativeOption, 0, len(rec.Alternatives)),
		CostOptimization:   rec.CostOptimization,
		Debug: DebugInfo{
			ScoredCount:          rec.Diagnostics.ScoredCount,
			PreemptableConflicts: rec.Diagnostics.PreemptableConflicts,
			TopScores:            make([]TopScore, 0, len(rec.Diagnostics.TopScores)),
		},
	}
	for _, alt := range rec.Alternatives {
		resp.AlternativeOptions = append(resp.AlternativeOptions, AlternativeOption{Room: alt.Room, Time: alt.Time})
	}
	for _, s := range rec.Diagnostics.TopScores {
		resp.Debug.TopScores = append(resp.Debug.TopScores, TopScore{RoomID: s.RoomID, Score: s.Score, Start: s.Start})
	}
	return resp
}
