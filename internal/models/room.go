package models

import (
	"time"

	"github.com/lib/pq"
)

// Room represents a bookable meeting room. Rooms are immutable during a
// scheduling run; the engine only ever reads them from a snapshot.
type Room struct {
	ID         string         `db:"id" json:"id"`
	Name       *string        `db:"name" json:"name,omitempty"`
	Capacity   int            `db:"capacity" json:"capacity"`
	Equipment  pq.StringArray `db:"equipment" json:"equipment"`
	HourlyRate float64        `db:"hourly_rate" json:"hourly_rate"`
	Location   *string        `db:"location" json:"location,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}

// HasEquipment reports whether every required tag is present, order-independent.
func (r Room) HasEquipment(required []string) bool {
	if len(required) == 0 {
		return true
	}
	tags := make(map[string]struct{}, len(r.Equipment))
	for _, tag := range r.Equipment {
		tags[tag] = struct{}{}
	}
	for _, tag := range required {
		if _, ok := tags[tag]; !ok {
			return false
		}
	}
	return true
}
