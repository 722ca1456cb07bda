package provider

import (
	"context"
	"fmt"

	"github.com/teleclinic/teleclinic/internal/domain/audit"
	"github.com/teleclinic/teleclinic/internal/platform/auth"
)

// AuditSink records verification decisions; implementations must not fail
// the caller.
type AuditSink interface {
	Record(ctx context.Context, e *audit.Event)
}

type Service struct {
	repo  Repository
	audit AuditSink
}

func NewService(repo Repository, auditSink AuditSink) *Service {
	return &Service{repo: repo, audit: auditSink}
}

func (s *Service) Register(ctx context.Context, p *Provider) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.Specialty == "" {
		return fmt.Errorf("specialty is required")
	}
	if p.VerificationStatus == "" {
		p.VerificationStatus = VerificationPending
	}
	if p.VerificationStatus != VerificationPending {
		return fmt.Errorf("new providers must start in %q verification", VerificationPending)
	}
	p.Active = true
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id int64) (*Provider, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Provider, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

func (s *Service) record(ctx context.Context, action string, p *Provider, detail map[string]interface{}) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, &audit.Event{
		Action:       action,
		ActorID:      auth.UserIDFromContext(ctx),
		ResourceType: "provider",
		ResourceID:   p.ID,
		Detail:       detail,
	})
}

// Verify marks a provider's credential review as approved, making it
// eligible for specialty matching.
func (s *Service) Verify(ctx context.Context, id int64) (*Provider, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.VerificationStatus = VerificationVerified
	p.RejectionReason = nil
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.record(ctx, audit.ActionProviderVerified, p, nil)
	return p, nil
}

// Reject marks a provider's credential review as rejected.
func (s *Service) Reject(ctx context.Context, id int64, reason string) (*Provider, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.VerificationStatus = VerificationRejected
	if reason != "" {
		p.RejectionReason = &reason
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.record(ctx, audit.ActionProviderRejected, p, map[string]interface{}{"reason": reason})
	return p, nil
}

// Resolve picks the provider for a consultation. An explicit id is returned
// unchanged without existence checks; otherwise the specialty hint is matched
// against verified providers, lowest id first. No match is a valid nil
// result, not an error.
func (s *Service) Resolve(ctx context.Context, explicitID *int64, specialtyHint string) (*int64, error) {
	if explicitID != nil {
		return explicitID, nil
	}
	if specialtyHint == "" {
		return nil, nil
	}
	p, err := s.repo.FirstVerifiedBySpecialty(ctx, specialtyHint)
	if err != nil {
		return nil, fmt.Errorf("resolve specialty %q: %w", specialtyHint, err)
	}
	if p == nil {
		return nil, nil
	}
	return &p.ID, nil
}
