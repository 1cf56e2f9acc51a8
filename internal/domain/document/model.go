package document

import (
	"time"

	"github.com/google/uuid"
)

// Template maps to the prompt_template table. Body may contain the
// placeholders {{patient_name}}, {{birth_date}} and {{kind}}.
type Template struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Kind      string    `db:"kind" json:"kind"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Document maps to the document table: one generated clinical document.
type Document struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	Kind        string    `db:"kind" json:"kind"`
	Content     string    `db:"content" json:"content"`
	GeneratedAt time.Time `db:"generated_at" json:"generated_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
