package ward

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// =========== Ward Repository ===========

type wardRepoPG struct{ pool *pgxpool.Pool }

func NewWardRepoPG(pool *pgxpool.Pool) WardRepository { return &wardRepoPG{pool: pool} }

const wardCols = `id, name, specialty, capacity, created_at, updated_at`

func scanWard(row pgx.Row) (*Ward, error) {
	var w Ward
	err := row.Scan(&w.ID, &w.Name, &w.Specialty, &w.Capacity, &w.CreatedAt, &w.UpdatedAt)
	return &w, err
}

func (r *wardRepoPG) Create(ctx context.Context, w *Ward) error {
	w.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO ward (id, name, specialty, capacity) VALUES ($1,$2,$3,$4)`,
		w.ID, w.Name, w.Specialty, w.Capacity)
	return err
}

func (r *wardRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Ward, error) {
	return scanWard(r.pool.QueryRow(ctx, `SELECT `+wardCols+` FROM ward WHERE id = $1`, id))
}

func (r *wardRepoPG) Update(ctx context.Context, w *Ward) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE ward SET name=$2, specialty=$3, capacity=$4, updated_at=NOW() WHERE id = $1`,
		w.ID, w.Name, w.Specialty, w.Capacity)
	return err
}

func (r *wardRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM ward WHERE id = $1`, id)
	return err
}

func (r *wardRepoPG) List(ctx context.Context, limit, offset int) ([]*Ward, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ward`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+wardCols+` FROM ward ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Ward
	for rows.Next() {
		w, err := scanWard(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, w)
	}
	return items, total, rows.Err()
}

// =========== Bed Repository ===========

type bedRepoPG struct{ pool *pgxpool.Pool }

func NewBedRepoPG(pool *pgxpool.Pool) BedRepository { return &bedRepoPG{pool: pool} }

const bedCols = `id, ward_id, label, status, occupant_id, created_at, updated_at`

func scanBed(row pgx.Row) (*Bed, error) {
	var b Bed
	err := row.Scan(&b.ID, &b.WardID, &b.Label, &b.Status, &b.OccupantID, &b.CreatedAt, &b.UpdatedAt)
	return &b, err
}

func (r *bedRepoPG) Create(ctx context.Context, b *Bed) error {
	b.ID = uuid.New()
	if b.Status == "" {
		b.Status = BedFree
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO bed (id, ward_id, label, status) VALUES ($1,$2,$3,$4)`,
		b.ID, b.WardID, b.Label, b.Status)
	return err
}

func (r *bedRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Bed, error) {
	return scanBed(r.pool.QueryRow(ctx, `SELECT `+bedCols+` FROM bed WHERE id = $1`, id))
}

func (r *bedRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM bed WHERE id = $1`, id)
	return err
}

func (r *bedRepoPG) ListByWard(ctx context.Context, wardID uuid.UUID) ([]*Bed, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+bedCols+` FROM bed WHERE ward_id = $1 ORDER BY label`, wardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Bed
	for rows.Next() {
		b, err := scanBed(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

func (r *bedRepoPG) FindByOccupant(ctx context.Context, patientID uuid.UUID) (*Bed, error) {
	b, err := scanBed(r.pool.QueryRow(ctx, `SELECT `+bedCols+` FROM bed WHERE occupant_id = $1`, patientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

// Assign relies on the conditional UPDATE for atomicity: a concurrent
// assignment loses the race and sees zero rows.
func (r *bedRepoPG) Assign(ctx context.Context, bedID, patientID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bed SET status=$3, occupant_id=$2, updated_at=NOW()
		WHERE id = $1 AND status = $4`,
		bedID, patientID, BedOccupied, BedFree)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBedUnavailable
	}
	return nil
}

func (r *bedRepoPG) Release(ctx context.Context, bedID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE bed SET status=$2, occupant_id=NULL, updated_at=NOW() WHERE id = $1`,
		bedID, BedFree)
	return err
}

func (r *bedRepoPG) SetBlocked(ctx context.Context, bedID uuid.UUID, blocked bool) error {
	if blocked {
		tag, err := r.pool.Exec(ctx, `
			UPDATE bed SET status=$2, updated_at=NOW() WHERE id = $1 AND status = $3`,
			bedID, BedBlocked, BedFree)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrBedUnavailable
		}
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE bed SET status=$2, updated_at=NOW() WHERE id = $1 AND status = $3`,
		bedID, BedFree, BedBlocked)
	return err
}
