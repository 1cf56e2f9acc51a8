package ward

import (
	"time"

	"github.com/google/uuid"
)

// Bed statuses.
const (
	BedFree     = "free"
	BedOccupied = "occupied"
	BedBlocked  = "blocked"
)

// Ward maps to the ward table.
type Ward struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Specialty *string   `db:"specialty" json:"specialty,omitempty"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Bed maps to the bed table. OccupantID is set only while occupied.
type Bed struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	WardID     uuid.UUID  `db:"ward_id" json:"ward_id"`
	Label      string     `db:"label" json:"label"`
	Status     string     `db:"status" json:"status"`
	OccupantID *uuid.UUID `db:"occupant_id" json:"occupant_id,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// Occupancy summarizes a ward for the bed board.
type Occupancy struct {
	Ward     *Ward  `json:"ward"`
	Beds     []*Bed `json:"beds"`
	Free     int    `json:"free"`
	Occupied int    `json:"occupied"`
	Blocked  int    `json:"blocked"`
}
