package document

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// =========== Template Repository ===========

type templateRepoPG struct{ pool *pgxpool.Pool }

func NewTemplateRepoPG(pool *pgxpool.Pool) TemplateRepository { return &templateRepoPG{pool: pool} }

const templateCols = `id, kind, body, created_at, updated_at`

func scanTemplate(row pgx.Row) (*Template, error) {
	var t Template
	err := row.Scan(&t.ID, &t.Kind, &t.Body, &t.CreatedAt, &t.UpdatedAt)
	return &t, err
}

func (r *templateRepoPG) Create(ctx context.Context, t *Template) error {
	t.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `INSERT INTO prompt_template (id, kind, body) VALUES ($1,$2,$3)`,
		t.ID, t.Kind, t.Body)
	return err
}

func (r *templateRepoPG) GetByKind(ctx context.Context, kind string) (*Template, error) {
	return scanTemplate(r.pool.QueryRow(ctx, `SELECT `+templateCols+` FROM prompt_template WHERE kind = $1`, kind))
}

func (r *templateRepoPG) Update(ctx context.Context, t *Template) error {
	_, err := r.pool.Exec(ctx, `UPDATE prompt_template SET kind=$2, body=$3, updated_at=NOW() WHERE id = $1`,
		t.ID, t.Kind, t.Body)
	return err
}

func (r *templateRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM prompt_template WHERE id = $1`, id)
	return err
}

func (r *templateRepoPG) List(ctx context.Context) ([]*Template, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+templateCols+` FROM prompt_template ORDER BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

// =========== Document Repository ===========

type documentRepoPG struct{ pool *pgxpool.Pool }

func NewDocumentRepoPG(pool *pgxpool.Pool) DocumentRepository { return &documentRepoPG{pool: pool} }

const documentCols = `id, patient_id, kind, content, generated_at, created_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.PatientID, &d.Kind, &d.Content, &d.GeneratedAt, &d.CreatedAt)
	return &d, err
}

func (r *documentRepoPG) Create(ctx context.Context, d *Document) error {
	d.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO document (id, patient_id, kind, content, generated_at) VALUES ($1,$2,$3,$4,$5)`,
		d.ID, d.PatientID, d.Kind, d.Content, d.GeneratedAt)
	return err
}

func (r *documentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	return scanDocument(r.pool.QueryRow(ctx, `SELECT `+documentCols+` FROM document WHERE id = $1`, id))
}

func (r *documentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM document WHERE id = $1`, id)
	return err
}

func (r *documentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Document, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM document WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+documentCols+` FROM document WHERE patient_id = $1 ORDER BY generated_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}
