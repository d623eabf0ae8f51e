package models

import (
	"time"

	"github.com/google/uuid"
)

// AvailabilitySlot is a recurring weekly window. DayOfWeek runs 1=Monday..7=Sunday,
// StartTime and EndTime are "HH:MM".
type AvailabilitySlot struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	MentorID  uuid.UUID `gorm:"type:uuid;not null;index:idx_availability_mentor_day" json:"mentor_id"`
	DayOfWeek int       `gorm:"not null;index:idx_availability_mentor_day" json:"day_of_week"`
	StartTime string    `gorm:"size:5;not null" json:"start_time"`
	EndTime   string    `gorm:"size:5;not null" json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
}
