package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Appointment maps to the appointment table.
type Appointment struct {
	ID               uuid.UUID `db:"id" json:"id"`
	PatientID        uuid.UUID `db:"patient_id" json:"patient_id"`
	PractitionerName string    `db:"practitioner_name" json:"practitioner_name"`
	Status           string    `db:"status" json:"status"`
	StartTime        time.Time `db:"start_time" json:"start_time"`
	EndTime          time.Time `db:"end_time" json:"end_time"`
	Reason           *string   `db:"reason" json:"reason,omitempty"`
	Note             *string   `db:"note" json:"note,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Overlaps reports whether two appointments share any time, used when
// checking a practitioner's calendar for collisions.
func (a *Appointment) Overlaps(other *Appointment) bool {
	return a.StartTime.Before(other.EndTime) && other.StartTime.Before(a.EndTime)
}
