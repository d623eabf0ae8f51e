package database

import (
	"context"
	"errors"
	"time"

	"github.com/anjiri1684/mentorship/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RefundablePayment returns the newest captured payment of the appointment that
// is not refunded yet, or nil, nil when there is none. It selects the same rows
// as CancelledWithCapturedPayments.
func (s *Store) RefundablePayment(ctx context.Context, appointmentID uint64) (*models.Payment, error) {
	var p models.Payment
	err := s.db.WithContext(ctx).
		Where("appointment_id = ? AND status = ? AND payout_status <> ? AND provider_txn_id IS NOT NULL",
			appointmentID, models.PaymentSucceeded, models.PayoutRefunded).
		Order("created_at DESC").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// HasCapturedPayment reports whether money was already taken for the appointment.
func (s *Store) HasCapturedPayment(ctx context.Context, appointmentID uint64) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("appointment_id = ? AND status = ?", appointmentID, models.PaymentSucceeded).
		Count(&n).Error
	return n > 0, err
}

func (s *Store) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var p models.Payment
	if err := s.db.WithContext(ctx).First(&p, "provider_order_id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreatePayment(ctx context.Context, p *models.Payment) error {
	return s.db.WithContext(ctx).Create(p).Error
}

// MarkCaptured records a successful capture and the commission split.
func (s *Store) MarkCaptured(ctx context.Context, id uuid.UUID, txnID string, mentorNet, platformFee float64) error {
	res := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, models.PaymentPending).
		Updates(map[string]interface{}{
			"status":          models.PaymentSucceeded,
			"provider_txn_id": txnID,
			"mentor_net":      mentorNet,
			"platform_fee":    platformFee,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, models.PaymentPending).
		Update("status", models.PaymentFailed).Error
}

// MarkRefunded zeroes the mentor's share and records the refund reference.
func (s *Store) MarkRefunded(ctx context.Context, id uuid.UUID, reference string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"payout_status":    models.PayoutRefunded,
			"mentor_net":       0,
			"platform_fee":     0,
			"refund_reference": reference,
			"refunded_at":      at,
		}).Error
}
