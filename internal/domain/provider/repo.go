package provider

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no provider matches the given identity.
var ErrNotFound = errors.New("provider not found")

// Filter narrows List results.
type Filter struct {
	Specialty          string
	VerificationStatus string
}

type Repository interface {
	Create(ctx context.Context, p *Provider) error
	GetByID(ctx context.Context, id int64) (*Provider, error)
	Update(ctx context.Context, p *Provider) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Provider, int, error)
	// FirstVerifiedBySpecialty returns the verified, active provider whose
	// specialty contains hint (case-insensitive), lowest id first. A nil
	// provider with nil error means no match.
	FirstVerifiedBySpecialty(ctx context.Context, hint string) (*Provider, error)
}
