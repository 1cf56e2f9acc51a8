package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patient table.
type Patient struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	FamilyName      string     `db:"family_name" json:"family_name"`
	GivenName       string     `db:"given_name" json:"given_name"`
	BirthDate       *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Gender          *string    `db:"gender" json:"gender,omitempty"`
	Phone           *string    `db:"phone" json:"phone,omitempty"`
	Email           *string    `db:"email" json:"email,omitempty"`
	InsuranceNumber *string    `db:"insurance_number" json:"insurance_number,omitempty"`
	Address         *string    `db:"address" json:"address,omitempty"`
	Notes           *string    `db:"notes" json:"notes,omitempty"`
	Active          bool       `db:"active" json:"active"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// DisplayName renders "Family, Given" for lists and generated documents.
func (p *Patient) DisplayName() string {
	switch {
	case p.FamilyName != "" && p.GivenName != "":
		return p.FamilyName + ", " + p.GivenName
	case p.FamilyName != "":
		return p.FamilyName
	default:
		return p.GivenName
	}
}

// MatchesQuery reports whether the free-text query hits the name or the
// insurance number. Used by the in-memory fallback when no directory
// endpoint is configured.
func (p *Patient) MatchesQuery(q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return false
	}
	if strings.Contains(strings.ToLower(p.FamilyName), q) ||
		strings.Contains(strings.ToLower(p.GivenName), q) {
		return true
	}
	return p.InsuranceNumber != nil && strings.Contains(strings.ToLower(*p.InsuranceNumber), q)
}
