package database

import (
	"context"

	"github.com/anjiri1684/mentorship/models"
	"github.com/google/uuid"
)

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetEmail(ctx context.Context, id uuid.UUID) (string, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return "", err
	}
	if !u.IsActive {
		return "", nil
	}
	return u.Email, nil
}

func (s *Store) GetFullName(ctx context.Context, id uuid.UUID) (string, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return "", err
	}
	return u.FullName, nil
}

func (s *Store) GetMentor(ctx context.Context, userID uuid.UUID) (*models.Mentor, error) {
	var m models.Mentor
	if err := s.db.WithContext(ctx).Preload("User").First(&m, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
