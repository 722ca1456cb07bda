package patient

import "time"

// Patient maps to the patients table. UserID is the external identity
// subject; exactly one patient row exists per subject.
type Patient struct {
	ID             int64     `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	Name           string    `db:"name" json:"name"`
	Age            *int      `db:"age" json:"age,omitempty"`
	MedicalHistory []string  `db:"medical_history" json:"medical_history,omitempty"`
	Allergies      []string  `db:"allergies" json:"allergies,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
