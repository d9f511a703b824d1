package models

import "time"

// BookingStatus enumerates the booking lifecycle.
type BookingStatus string

const (
	StatusTentative BookingStatus = "tentative"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusReleased  BookingStatus = "released"
)

// Valid reports whether the status is one of the four known values.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusTentative, StatusConfirmed, StatusCancelled, StatusReleased:
		return true
	}
	return false
}

// CanTransitionTo enforces the lifecycle state machine: tentative is the only
// non-terminal state; cancelled and released are terminal.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	if s != StatusTentative {
		return false
	}
	switch next {
	case StatusConfirmed, StatusCancelled, StatusReleased:
		return true
	}
	return false
}

// Booking represents a reservation on a room. Buffer columns are nullable;
// a nil buffer falls back to the engine's configured default.
type Booking struct {
	ID           string        `db:"id" json:"id"`
	RoomID       string        `db:"room_id" json:"room_id"`
	StartTime    time.Time     `db:"start_time" json:"start_time"`
	EndTime      time.Time     `db:"end_time" json:"end_time"`
	OrganizerID  string        `db:"organizer_id" json:"organizer_id"`
	Priority     Priority      `db:"priority" json:"priority"`
	Status       BookingStatus `db:"status" json:"status"`
	BufferBefore *int          `db:"buffer_before" json:"buffer_before,omitempty"`
	BufferAfter  *int          `db:"buffer_after" json:"buffer_after,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// Active reports whether the booking participates in conflict checks.
func (b Booking) Active() bool {
	return b.Status != StatusCancelled && b.Status != StatusReleased
}

// BufferedWindow expands the booking interval by its own buffers, falling
// back to the provided default for unset sides. The result is half-open.
func (b Booking) BufferedWindow(defaultBufferMinutes int) (time.Time, time.Time) {
	before := defaultBufferMinutes
	if b.BufferBefore != nil {
		before = *b.BufferBefore
	}
	after := defaultBufferMinutes
	if b.BufferAfter != nil {
		after = *b.BufferAfter
	}
	return b.StartTime.Add(-time.Duration(before) * time.Minute),
		b.EndTime.Add(time.Duration(after) * time.Minute)
}
