package model

import "time"

// Slot is a bookable time window. Available flips to false exactly once per
// successful claim and back to true when the claiming booking is cancelled.
type Slot struct {
	ID        string    `json:"id" bson:"_id"`
	StartTime time.Time `json:"start_time" bson:"start_time"`
	EndTime   time.Time `json:"end_time" bson:"end_time"`
	Available bool      `json:"available" bson:"available"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Overlaps reports whether the slot intersects the half-open window [start, end).
func (s *Slot) Overlaps(start, end time.Time) bool {
	return s.StartTime.Before(end) && s.EndTime.After(start)
}

type SlotRequest struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	Available *bool     `json:"available,omitempty"`
}
