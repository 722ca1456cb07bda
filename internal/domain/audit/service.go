package audit

import (
	"context"

	"github.com/rs/zerolog"
)

// Recorder writes audit events. Recording never fails the caller's request;
// failures are logged and swallowed.
type Recorder struct {
	repo   Repository
	logger zerolog.Logger
}

func NewRecorder(repo Repository, logger zerolog.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Record persists an event on a best-effort basis.
func (r *Recorder) Record(ctx context.Context, e *Event) {
	if err := r.repo.Insert(ctx, e); err != nil {
		r.logger.Error().Err(err).
			Str("action", e.Action).
			Str("resource_type", e.ResourceType).
			Int64("resource_id", e.ResourceID).
			Msg("audit event dropped")
	}
}

func (r *Recorder) List(ctx context.Context, f Filter, limit, offset int) ([]*Event, int, error) {
	return r.repo.List(ctx, f, limit, offset)
}
