package ward

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	wards WardRepository
	beds  BedRepository
}

func NewService(wards WardRepository, beds BedRepository) *Service {
	return &Service{wards: wards, beds: beds}
}

// -- Ward --

func (s *Service) CreateWard(ctx context.Context, w *Ward) error {
	if strings.TrimSpace(w.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if w.Capacity < 0 {
		return fmt.Errorf("capacity must not be negative")
	}
	return s.wards.Create(ctx, w)
}

func (s *Service) GetWard(ctx context.Context, id uuid.UUID) (*Ward, error) {
	return s.wards.GetByID(ctx, id)
}

func (s *Service) UpdateWard(ctx context.Context, w *Ward) error {
	if strings.TrimSpace(w.Name) == "" {
		return fmt.Errorf("name is required")
	}
	return s.wards.Update(ctx, w)
}

func (s *Service) DeleteWard(ctx context.Context, id uuid.UUID) error {
	beds, err := s.beds.ListByWard(ctx, id)
	if err != nil {
		return err
	}
	for _, b := range beds {
		if b.Status == BedOccupied {
			return fmt.Errorf("ward has occupied beds")
		}
	}
	return s.wards.Delete(ctx, id)
}

func (s *Service) ListWards(ctx context.Context, limit, offset int) ([]*Ward, int, error) {
	return s.wards.List(ctx, limit, offset)
}

// WardOccupancy returns the bed board for one ward.
func (s *Service) WardOccupancy(ctx context.Context, wardID uuid.UUID) (*Occupancy, error) {
	w, err := s.wards.GetByID(ctx, wardID)
	if err != nil {
		return nil, err
	}
	beds, err := s.beds.ListByWard(ctx, wardID)
	if err != nil {
		return nil, err
	}
	occ := &Occupancy{Ward: w, Beds: beds}
	for _, b := range beds {
		switch b.Status {
		case BedFree:
			occ.Free++
		case BedOccupied:
			occ.Occupied++
		case BedBlocked:
			occ.Blocked++
		}
	}
	return occ, nil
}

// -- Bed --

func (s *Service) CreateBed(ctx context.Context, b *Bed) error {
	if b.WardID == uuid.Nil {
		return fmt.Errorf("ward_id is required")
	}
	if strings.TrimSpace(b.Label) == "" {
		return fmt.Errorf("label is required")
	}
	w, err := s.wards.GetByID(ctx, b.WardID)
	if err != nil {
		return fmt.Errorf("ward not found")
	}
	beds, err := s.beds.ListByWard(ctx, b.WardID)
	if err != nil {
		return err
	}
	if w.Capacity > 0 && len(beds) >= w.Capacity {
		return fmt.Errorf("ward %s is at capacity", w.Name)
	}
	return s.beds.Create(ctx, b)
}

func (s *Service) GetBed(ctx context.Context, id uuid.UUID) (*Bed, error) {
	return s.beds.GetByID(ctx, id)
}

func (s *Service) DeleteBed(ctx context.Context, id uuid.UUID) error {
	b, err := s.beds.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if b.Status == BedOccupied {
		return fmt.Errorf("bed is occupied")
	}
	return s.beds.Delete(ctx, id)
}

func (s *Service) ListBeds(ctx context.Context, wardID uuid.UUID) ([]*Bed, error) {
	return s.beds.ListByWard(ctx, wardID)
}

// Assign puts a patient into a free bed. A patient occupies at most one
// bed at a time.
func (s *Service) Assign(ctx context.Context, bedID, patientID uuid.UUID) error {
	if patientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	existing, err := s.beds.FindByOccupant(ctx, patientID)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrPatientAlreadyAssigned
	}
	return s.beds.Assign(ctx, bedID, patientID)
}

// Release frees the bed. Releasing a free bed is a no-op.
func (s *Service) Release(ctx context.Context, bedID uuid.UUID) error {
	return s.beds.Release(ctx, bedID)
}

// Block takes a free bed out of service; Unblock returns it.
func (s *Service) Block(ctx context.Context, bedID uuid.UUID) error {
	return s.beds.SetBlocked(ctx, bedID, true)
}

func (s *Service) Unblock(ctx context.Context, bedID uuid.UUID) error {
	return s.beds.SetBlocked(ctx, bedID, false)
}
