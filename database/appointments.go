package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anjiri1684/mentorship/booking"
	"github.com/anjiri1684/mentorship/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var activeStatuses = []models.AppointmentStatus{models.AppointmentPending, models.AppointmentAccepted}

func (s *Store) ActiveForMentorOnDate(ctx context.Context, mentorID uuid.UUID, date string) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := s.db.WithContext(ctx).
		Where("mentor_id = ? AND date = ? AND status IN ?", mentorID, date, activeStatuses).
		Order("start_time").
		Find(&appts).Error
	return appts, err
}

// InsertIfFree rechecks for overlap inside a transaction that holds a row lock on
// the mentor, so it stays correct when several API instances share the database.
// "HH:MM" values compare correctly as strings.
func (s *Store) InsertIfFree(ctx context.Context, appt *models.Appointment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var mentor models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			First(&mentor, "id = ?", appt.MentorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: mentor %s", booking.ErrNotFound, appt.MentorID)
			}
			return err
		}

		var overlapping int64
		if err := tx.Model(&models.Appointment{}).
			Where("mentor_id = ? AND date = ? AND status IN ?", appt.MentorID, appt.Date, activeStatuses).
			Where("start_time < ? AND end_time > ?", appt.EndTime, appt.StartTime).
			Count(&overlapping).Error; err != nil {
			return err
		}
		if overlapping > 0 {
			return booking.ErrSlotUnavailable
		}
		return tx.Create(appt).Error
	})
}

func (s *Store) GetAppointment(ctx context.Context, id uint64) (*models.Appointment, error) {
	var appt models.Appointment
	if err := s.db.WithContext(ctx).First(&appt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, booking.ErrNotFound
		}
		return nil, err
	}
	return &appt, nil
}

// TransitionStatus only updates a row still in the expected status.
func (s *Store) TransitionStatus(ctx context.Context, id uint64, from, to models.AppointmentStatus) (*models.Appointment, error) {
	db := s.db.WithContext(ctx)
	res := db.Model(&models.Appointment{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := db.Model(&models.Appointment{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, booking.ErrNotFound
		}
		return nil, fmt.Errorf("%w: appointment %d is no longer %s", booking.ErrInvalidTransition, id, from)
	}
	return s.GetAppointment(ctx, id)
}

func (s *Store) SetMeetingLink(ctx context.Context, id uint64, link string) error {
	return s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ?", id).
		Update("meeting_link", link).Error
}

func (s *Store) ClearMeetingLink(ctx context.Context, id uint64) error {
	return s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ? AND meeting_link IS NOT NULL", id).
		Update("meeting_link", gorm.Expr("NULL")).Error
}

func (s *Store) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := s.db.WithContext(ctx).
		Where("mentor_id = ? OR mentee_id = ?", userID, userID).
		Order("starts_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&appts).Error
	return appts, err
}

// AcceptedStartingBetween feeds the reminder job.
func (s *Store) AcceptedStartingBetween(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := s.db.WithContext(ctx).
		Where("status = ? AND starts_at >= ? AND starts_at < ?", models.AppointmentAccepted, from, to).
		Order("starts_at").
		Find(&appts).Error
	return appts, err
}

// CancelledWithCapturedPayments lists cancelled appointments that still have a
// captured payment not marked refunded, for the refund sweep.
func (s *Store) CancelledWithCapturedPayments(ctx context.Context, limit int) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := s.db.WithContext(ctx).
		Distinct("appointments.*").
		Joins("JOIN payments ON payments.appointment_id = appointments.id").
		Where("appointments.status = ?", models.AppointmentCancelled).
		Where("payments.status = ? AND payments.payout_status <> ? AND payments.provider_txn_id IS NOT NULL",
			models.PaymentSucceeded, models.PayoutRefunded).
		Order("appointments.updated_at").
		Limit(limit).
		Find(&appts).Error
	return appts, err
}
