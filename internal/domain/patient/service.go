package patient

import (
	"context"
	"errors"
	"fmt"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// EnsureForUser returns the patient row for the given identity subject,
// creating an empty one on first contact. Offline clients may sync before
// any profile was ever saved.
func (s *Service) EnsureForUser(ctx context.Context, userID string) (*Patient, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	p, err := s.repo.GetByUserID(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	p = &Patient{UserID: userID}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create patient for user %s: %w", userID, err)
	}
	return p, nil
}

func (s *Service) GetForUser(ctx context.Context, userID string) (*Patient, error) {
	return s.EnsureForUser(ctx, userID)
}

// UpdateProfile overwrites the caller's own profile fields. Identity fields
// are never touched here.
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd *Patient) (*Patient, error) {
	p, err := s.EnsureForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.Name = upd.Name
	p.Age = upd.Age
	p.MedicalHistory = upd.MedicalHistory
	p.Allergies = upd.Allergies
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
