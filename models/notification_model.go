package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	CategoryBooking  = "booking"
	CategoryPayment  = "payment"
	CategoryReminder = "reminder"
)

type Notification struct {
	ID        uint64            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	Category  string            `gorm:"size:50;not null" json:"category"`
	Title     string            `gorm:"size:255;not null" json:"title"`
	Body      string            `gorm:"type:text;not null" json:"body"`
	Metadata  map[string]string `gorm:"serializer:json;type:jsonb" json:"metadata,omitempty"`
	Read      bool              `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time         `json:"created_at"`
}
