package models

import (
	"time"

	"github.com/google/uuid"
)

// Mentor is the provider-side profile of a User.
type Mentor struct {
	UserID          uuid.UUID `gorm:"type:uuid;primary_key" json:"user_id"`
	Headline        *string   `gorm:"size:255" json:"headline"`
	Bio             *string   `gorm:"type:text" json:"bio"`
	Status          string    `gorm:"size:20;not null;default:'active'" json:"status"`
	PricePerSession float64   `gorm:"type:numeric(10,2);not null;default:0" json:"price_per_session"`
	Currency        string    `gorm:"size:3;not null;default:'EUR'" json:"currency"`
	User            User      `gorm:"foreignkey:UserID" json:"user"`
	CreatedAt       time.Time `json:"-"`
	UpdatedAt       time.Time `json:"-"`
}
