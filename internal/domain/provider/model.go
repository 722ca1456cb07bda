package provider

import "time"

// Verification states for a provider's credential review.
const (
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationRejected = "rejected"
)

// Provider maps to the providers table. A provider becomes eligible for
// specialty-based matching only once verified and active.
type Provider struct {
	ID                 int64     `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	Email              string    `db:"email" json:"email"`
	Specialty          string    `db:"specialty" json:"specialty"`
	SubSpecialties     []string  `db:"sub_specialties" json:"sub_specialties,omitempty"`
	VerificationStatus string    `db:"verification_status" json:"verification_status"`
	RejectionReason    *string   `db:"rejection_reason" json:"rejection_reason,omitempty"`
	Active             bool      `db:"active" json:"active"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// Verified reports whether the provider has passed credential review.
func (p *Provider) Verified() bool {
	return p.VerificationStatus == VerificationVerified
}
