package dto

import "time"

// CommitBookingRequest asks the commit protocol to persist a chosen slot.
type CommitBookingRequest struct {
	RoomID            string    `json:"roomId" validate:"required"`
	StartTime         time.Time `json:"startTime" validate:"required"`
	Duration          int       `json:"duration" validate:"required,min=1"`
	Attendees         []string  `json:"attendees" validate:"required,min=1"`
	RequiredEquipment []string  `json:"requiredEquipment"`
	Organizer         string    `json:"organizer" validate:"required"`
	Priority          string    `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
}

// UpdateBookingStatusRequest drives the tentative booking through its
// lifecycle. Tentative is never a transition target.
type UpdateBookingStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed cancelled released"`
}
