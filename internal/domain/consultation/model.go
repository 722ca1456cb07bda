package consultation

import "time"

// Consultation statuses. Offline-created records enter as scheduled.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Consultation maps to the consultations table. ClientID is the offline
// client's idempotency key; it is unique when present and nil for records
// created directly on the server.
type Consultation struct {
	ID           int64      `db:"id" json:"id"`
	ClientID     *string    `db:"client_id" json:"client_id,omitempty"`
	PatientID    int64      `db:"patient_id" json:"patient_id"`
	ProviderID   *int64     `db:"provider_id" json:"provider_id,omitempty"`
	ScheduledAt  *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	Symptoms     *string    `db:"symptoms" json:"symptoms,omitempty"`
	Diagnosis    *string    `db:"diagnosis" json:"diagnosis,omitempty"`
	Prescription *string    `db:"prescription" json:"prescription,omitempty"`
	Notes        *string    `db:"notes" json:"notes,omitempty"`
	Status       string     `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
