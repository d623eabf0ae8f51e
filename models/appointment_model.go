package models

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentAccepted  AppointmentStatus = "accepted"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Active reports whether the status still occupies the mentor's time.
func (s AppointmentStatus) Active() bool {
	return s == AppointmentPending || s == AppointmentAccepted
}

type Appointment struct {
	ID          uint64            `gorm:"primaryKey;autoIncrement" json:"id"`
	MentorID    uuid.UUID         `gorm:"type:uuid;not null;index:idx_appointments_mentor_date" json:"mentor_id"`
	MenteeID    uuid.UUID         `gorm:"type:uuid;not null;index" json:"mentee_id"`
	Date        string            `gorm:"size:10;not null;index:idx_appointments_mentor_date" json:"date"`
	StartTime   string            `gorm:"size:5;not null" json:"start_time"`
	EndTime     string            `gorm:"size:5;not null" json:"end_time"`
	StartsAt    time.Time         `gorm:"not null;index" json:"starts_at"`
	EndsAt      time.Time         `gorm:"not null" json:"ends_at"`
	Status      AppointmentStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	MeetingLink *string           `gorm:"size:255" json:"meeting_link,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Completed is a derived view: an accepted appointment whose end has passed.
func (a Appointment) Completed(now time.Time) bool {
	return a.Status == AppointmentAccepted && !a.EndsAt.After(now)
}
