package models

import "time"

// Priority orders meeting requests and bookings by urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Value maps the priority onto a comparable ladder. Unknown values rank
// below low so malformed data never outranks a real priority.
func (p Priority) Value() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityNormal:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	}
	return 0
}

// Valid reports whether the priority is one of the four known values.
func (p Priority) Valid() bool {
	return p.Value() > 0
}

// OrganizerRole distinguishes requesters for the scoring bonus.
type OrganizerRole string

const (
	RoleEmployee OrganizerRole = "employee"
	RoleAdmin    OrganizerRole = "admin"
	RoleCEO      OrganizerRole = "ceo"
)

// MeetingRequest is the engine-facing description of a requested meeting.
// Instants are absolute; the engine never works in naive local time.
type MeetingRequest struct {
	Organizer          string
	OrganizerRole      OrganizerRole
	Attendees          []string
	DurationMinutes    int
	RequiredEquipment  []string
	PreferredStart     time.Time
	FlexibilityMinutes int
	Priority           Priority
}

// AttendeeCount never reports below one; a request with an empty attendee
// list still occupies a seat.
func (r MeetingRequest) AttendeeCount() int {
	if len(r.Attendees) < 1 {
		return 1
	}
	return len(r.Attendees)
}

// Duration returns the meeting length.
func (r MeetingRequest) Duration() time.Duration {
	return time.Duration(r.DurationMinutes) * time.Minute
}
