package database

import (
	"context"

	"github.com/anjiri1684/mentorship/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *Store) CreateSlot(ctx context.Context, slot *models.AvailabilitySlot) error {
	return s.db.WithContext(ctx).Create(slot).Error
}

// DeleteSlot removes a slot owned by mentorID; gorm.ErrRecordNotFound otherwise.
func (s *Store) DeleteSlot(ctx context.Context, slotID, mentorID uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND mentor_id = ?", slotID, mentorID).
		Delete(&models.AvailabilitySlot{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Store) SlotsForMentor(ctx context.Context, mentorID uuid.UUID) ([]models.AvailabilitySlot, error) {
	var slots []models.AvailabilitySlot
	err := s.db.WithContext(ctx).
		Where("mentor_id = ?", mentorID).
		Order("day_of_week, start_time").
		Find(&slots).Error
	return slots, err
}

func (s *Store) SlotsForDay(ctx context.Context, mentorID uuid.UUID, dayOfWeek int) ([]models.AvailabilitySlot, error) {
	var slots []models.AvailabilitySlot
	err := s.db.WithContext(ctx).
		Where("mentor_id = ? AND day_of_week = ?", mentorID, dayOfWeek).
		Order("start_time").
		Find(&slots).Error
	return slots, err
}
