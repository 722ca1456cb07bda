package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/teleclinic/teleclinic/internal/domain/audit"
	"github.com/teleclinic/teleclinic/internal/domain/consultation"
	"github.com/teleclinic/teleclinic/internal/domain/patient"
)

// PatientDirectory resolves the caller's identity subject to their patient
// row, creating one on first contact.
type PatientDirectory interface {
	EnsureForUser(ctx context.Context, userID string) (*patient.Patient, error)
}

// ProviderResolver picks a provider id from an explicit id or a specialty
// hint. A nil id with nil error means no assignment.
type ProviderResolver interface {
	Resolve(ctx context.Context, explicitID *int64, specialtyHint string) (*int64, error)
}

// AuditSink records audit events; implementations must not fail the caller.
type AuditSink interface {
	Record(ctx context.Context, e *audit.Event)
}

// Engine reconciles batches of offline consultation changes into server
// state. Items are processed sequentially and independently; one failing
// item never aborts the batch.
type Engine struct {
	patients      PatientDirectory
	providers     ProviderResolver
	consultations consultation.Repository
	audit         AuditSink
	logger        zerolog.Logger
}

func NewEngine(
	patients PatientDirectory,
	providers ProviderResolver,
	consultations consultation.Repository,
	auditSink AuditSink,
	logger zerolog.Logger,
) *Engine {
	return &Engine{
		patients:      patients,
		providers:     providers,
		consultations: consultations,
		audit:         auditSink,
		logger:        logger,
	}
}

// Reconcile merges a batch for the given identity subject. The returned slice
// mirrors the input order, one result per item. The only batch-level failure
// is being unable to establish the caller's patient row; everything after
// that is reported per item.
func (e *Engine) Reconcile(ctx context.Context, userID string, items []Item) ([]Result, error) {
	if userID == "" {
		return nil, fmt.Errorf("caller identity is required")
	}
	owner, err := e.patients.EnsureForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ensure patient for user %s: %w", userID, err)
	}

	results := make([]Result, 0, len(items))
	for i, item := range items {
		res := e.safeProcess(ctx, owner, item)
		if res.Status == StatusError {
			e.logger.Warn().
				Str("user_id", userID).
				Int("item", i).
				Str("reason", res.Reason).
				Msg("sync item failed")
		}
		results = append(results, res)
	}
	return results, nil
}

// safeProcess isolates one item: a panic or error inside it becomes that
// item's error result, and the batch continues.
func (e *Engine) safeProcess(ctx context.Context, owner *patient.Patient, item Item) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{
				ClientID: item.ClientID,
				Status:   StatusError,
				Reason:   fmt.Sprintf("panic: %v", r),
			}
		}
	}()
	return e.processItem(ctx, owner, item)
}

func (e *Engine) processItem(ctx context.Context, owner *patient.Patient, item Item) Result {
	errResult := func(err error) Result {
		return Result{ClientID: item.ClientID, Status: StatusError, Reason: err.Error()}
	}

	providerID, err := e.providers.Resolve(ctx, item.ProviderID, deref(item.Specialty))
	if err != nil {
		return errResult(err)
	}

	scheduledAt := parseTime(item.ScheduledAt)
	clientUpdatedAt := parseTime(item.ClientUpdatedAt)

	if item.ServerID != nil {
		existing, err := e.consultations.GetByID(ctx, *item.ServerID)
		if err != nil && !errors.Is(err, consultation.ErrNotFound) {
			return errResult(err)
		}

		switch Decide(existing, owner.ID, clientUpdatedAt) {
		case RejectNotFoundOrForbidden:
			return Result{ClientID: item.ClientID, Status: StatusError, Reason: ReasonNotFoundOrForbidden}
		case SkipNewerServer:
			return Result{ClientID: item.ClientID, ServerID: &existing.ID, Status: StatusSkippedNewerServer}
		}

		if providerID != nil {
			existing.ProviderID = providerID
		}
		if scheduledAt != nil {
			existing.ScheduledAt = scheduledAt
		}
		if item.Symptoms != nil {
			existing.Symptoms = item.Symptoms
		}
		if err := e.consultations.UpdateSyncFields(ctx, existing); err != nil {
			return errResult(err)
		}
		e.audit.Record(ctx, &audit.Event{
			Action:       audit.ActionConsultationUpdated,
			ActorID:      owner.UserID,
			ResourceType: "consultation",
			ResourceID:   existing.ID,
			Detail:       map[string]interface{}{"via": "sync"},
		})
		return Result{ClientID: item.ClientID, ServerID: &existing.ID, Status: StatusUpdated}
	}

	if item.ClientID != nil {
		existing, err := e.consultations.GetByClientID(ctx, *item.ClientID)
		if err == nil {
			return Result{ClientID: item.ClientID, ServerID: &existing.ID, Status: StatusDuplicate}
		}
		if !errors.Is(err, consultation.ErrNotFound) {
			return errResult(err)
		}
	}

	created := &consultation.Consultation{
		ClientID:    item.ClientID,
		PatientID:   owner.ID,
		ProviderID:  providerID,
		ScheduledAt: scheduledAt,
		Symptoms:    item.Symptoms,
		Status:      consultation.StatusScheduled,
	}
	if err := e.consultations.Create(ctx, created); err != nil {
		return errResult(err)
	}

	e.audit.Record(ctx, &audit.Event{
		Action:       audit.ActionConsultationCreated,
		ActorID:      owner.UserID,
		ResourceType: "consultation",
		ResourceID:   created.ID,
		Detail:       map[string]interface{}{"client_id": deref(item.ClientID), "via": "sync"},
	})

	return Result{ClientID: item.ClientID, ServerID: &created.ID, Status: StatusCreated}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
