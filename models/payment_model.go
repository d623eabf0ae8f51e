package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PaymentPending   = "pending"
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
)

type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutCompleted PayoutStatus = "completed"
	PayoutRefunded  PayoutStatus = "refunded"
)

type Payment struct {
	ID              uuid.UUID    `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	AppointmentID   uint64       `gorm:"not null;index" json:"appointment_id"`
	Amount          float64      `gorm:"type:numeric(10,2);not null" json:"amount"`
	Currency        string       `gorm:"size:3" json:"currency"`
	Provider        string       `gorm:"size:50;not null" json:"provider"`
	ProviderOrderID *string      `gorm:"size:255;unique" json:"provider_order_id,omitempty"`
	ProviderTxnID   *string      `gorm:"size:255;unique" json:"provider_txn_id,omitempty"`
	Status          string       `gorm:"size:20;not null" json:"status"`
	PayoutStatus    PayoutStatus `gorm:"size:20;not null;default:'pending'" json:"payout_status"`
	MentorNet       float64      `gorm:"type:numeric(10,2);default:0" json:"mentor_net"`
	PlatformFee     float64      `gorm:"type:numeric(10,2);default:0" json:"platform_fee"`
	RefundReference *string      `gorm:"size:255" json:"refund_reference,omitempty"`
	RefundedAt      *time.Time   `json:"refunded_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Captured reports whether money was actually taken from the mentee.
func (p Payment) Captured() bool {
	return p.Status == PaymentSucceeded && p.ProviderTxnID != nil && *p.ProviderTxnID != ""
}
