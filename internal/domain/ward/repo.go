package ward

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrBedUnavailable is returned when an assignment races another occupant
// or targets a blocked bed.
var ErrBedUnavailable = errors.New("bed is not free")

// ErrPatientAlreadyAssigned is returned when a patient already occupies a
// bed somewhere in the clinic.
var ErrPatientAlreadyAssigned = errors.New("patient already occupies a bed")

type WardRepository interface {
	Create(ctx context.Context, w *Ward) error
	GetByID(ctx context.Context, id uuid.UUID) (*Ward, error)
	Update(ctx context.Context, w *Ward) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Ward, int, error)
}

type BedRepository interface {
	Create(ctx context.Context, b *Bed) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bed, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByWard(ctx context.Context, wardID uuid.UUID) ([]*Bed, error)
	FindByOccupant(ctx context.Context, patientID uuid.UUID) (*Bed, error)
	// Assign moves a free bed to occupied atomically; ErrBedUnavailable
	// when the bed is not free at commit time.
	Assign(ctx context.Context, bedID, patientID uuid.UUID) error
	// Release frees the bed regardless of occupant.
	Release(ctx context.Context, bedID uuid.UUID) error
	SetBlocked(ctx context.Context, bedID uuid.UUID, blocked bool) error
}
