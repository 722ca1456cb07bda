package consultation

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no consultation matches the given identity.
var ErrNotFound = errors.New("consultation not found")

type Repository interface {
	Create(ctx context.Context, c *Consultation) error
	GetByID(ctx context.Context, id int64) (*Consultation, error)
	// GetByClientID looks a consultation up by its offline idempotency key.
	GetByClientID(ctx context.Context, clientID string) (*Consultation, error)
	// UpdateSyncFields persists the fields an offline client may rewrite
	// (schedule, symptoms, provider) and bumps updated_at server-side.
	UpdateSyncFields(ctx context.Context, c *Consultation) error
	// UpdateClinical persists the fields a provider writes after the visit.
	UpdateClinical(ctx context.Context, c *Consultation) error
	ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Consultation, int, error)
}
