package sync

import (
	"time"

	"github.com/teleclinic/teleclinic/internal/domain/consultation"
)

// Decision is the conflict resolver's verdict for an update targeting an
// existing server record.
type Decision int

const (
	// Apply overwrites the record's sync-mutable fields.
	Apply Decision = iota
	// SkipNewerServer leaves the record untouched; server state is at least
	// as fresh as the client's.
	SkipNewerServer
	// RejectNotFoundOrForbidden refuses the update; the record is missing or
	// owned by another patient.
	RejectNotFoundOrForbidden
)

// Decide applies the last-write-wins policy for an item that named a server
// id. A nil clientUpdatedAt means the client makes no freshness claim and
// always wins.
func Decide(existing *consultation.Consultation, ownerID int64, clientUpdatedAt *time.Time) Decision {
	if existing == nil || existing.PatientID != ownerID {
		return RejectNotFoundOrForbidden
	}
	if clientUpdatedAt != nil && !existing.UpdatedAt.IsZero() &&
		!clientUpdatedAt.After(existing.UpdatedAt) {
		return SkipNewerServer
	}
	return Apply
}
