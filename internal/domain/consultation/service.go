package consultation

import (
	"context"
	"errors"
	"fmt"
)

// ErrForbidden is returned when the caller does not own the consultation.
var ErrForbidden = errors.New("consultation belongs to another patient")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Book creates a consultation directly on the server, as opposed to the sync
// path. No client id is attached.
func (s *Service) Book(ctx context.Context, c *Consultation) error {
	if c.PatientID == 0 {
		return fmt.Errorf("patient id is required")
	}
	c.ClientID = nil
	if c.Status == "" {
		c.Status = StatusScheduled
	}
	return s.repo.Create(ctx, c)
}

// Get returns the consultation if it belongs to patientID.
func (s *Service) Get(ctx context.Context, id, patientID int64) (*Consultation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.PatientID != patientID {
		return nil, ErrForbidden
	}
	return c, nil
}

// UpdateClinical records the outcome of a visit.
func (s *Service) UpdateClinical(ctx context.Context, id int64, upd *Consultation) (*Consultation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Diagnosis = upd.Diagnosis
	c.Prescription = upd.Prescription
	c.Notes = upd.Notes
	if upd.Status != "" {
		switch upd.Status {
		case StatusScheduled, StatusCompleted, StatusCancelled:
			c.Status = upd.Status
		default:
			return nil, fmt.Errorf("invalid status %q", upd.Status)
		}
	}
	if err := s.repo.UpdateClinical(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ListForPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Consultation, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}
