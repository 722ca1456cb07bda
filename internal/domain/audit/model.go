package audit

import "time"

// Actions recorded in the audit trail.
const (
	ActionConsultationCreated = "consultation_created"
	ActionConsultationUpdated = "consultation_updated"
	ActionProviderVerified    = "provider_verified"
	ActionProviderRejected    = "provider_rejected"
)

// Event is one immutable row in the audit trail.
type Event struct {
	ID           int64                  `db:"id" json:"id"`
	Action       string                 `db:"action" json:"action"`
	ActorID      string                 `db:"actor_id" json:"actor_id"`
	ResourceType string                 `db:"resource_type" json:"resource_type"`
	ResourceID   int64                  `db:"resource_id" json:"resource_id"`
	Detail       map[string]interface{} `db:"detail" json:"detail,omitempty"`
	Recorded     time.Time              `db:"recorded" json:"recorded"`
}
