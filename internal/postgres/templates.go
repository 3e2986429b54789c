package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/domain"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/errs"
)

// TemplateRepo persists MappingTemplate rows. Templates are user-scoped
// and independent of jobs: they never mutate extraction output and are
// looked up only at export time.
type TemplateRepo struct {
	db *sqlx.DB
}

type templateRow struct {
	ID           string       `db:"id"`
	Name         string       `db:"name"`
	DocumentType string       `db:"document_type"`
	Columns      []byte       `db:"columns"`
	UsageCount   int          `db:"usage_count"`
	CreatedAt    sql.NullTime `db:"created_at"`
	UpdatedAt    sql.NullTime `db:"updated_at"`
}

func (row templateRow) toDomain() (*domain.MappingTemplate, error) {
	var cols []domain.TemplateColumn
	if len(row.Columns) > 0 {
		if err := json.Unmarshal(row.Columns, &cols); err != nil {
			return nil, err
		}
	}
	return &domain.MappingTemplate{
		ID:           row.ID,
		Name:         row.Name,
		DocumentType: row.DocumentType,
		Columns:      cols,
		UsageCount:   row.UsageCount,
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
	}, nil
}

// Create inserts a new MappingTemplate.
func (r *TemplateRepo) Create(ctx context.Context, t *domain.MappingTemplate) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	cols, err := json.Marshal(t.Columns)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO mapping_templates (id, name, document_type, columns, usage_count)
		VALUES ($1, $2, $3, $4, $5)
	`, t.ID, t.Name, t.DocumentType, cols, t.UsageCount)
	if err != nil {
		return errs.NewTransient("", "failed to insert template", err)
	}
	return nil
}

// Get loads one template by id.
func (r *TemplateRepo) Get(ctx context.Context, id string) (*domain.MappingTemplate, error) {
	var row templateRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM mapping_templates WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NewNotFound("", "template", id)
	}
	if err != nil {
		return nil, errs.NewTransient("", "failed to load template", err)
	}
	return row.toDomain()
}

// List returns templates, optionally filtered by document_type.
func (r *TemplateRepo) List(ctx context.Context, documentType string) ([]*domain.MappingTemplate, error) {
	var rows []templateRow
	var err error
	if documentType != "" {
		err = r.db.SelectContext(ctx, &rows,
			`SELECT * FROM mapping_templates WHERE document_type = $1 ORDER BY name`, documentType)
	} else {
		err = r.db.SelectContext(ctx, &rows, `SELECT * FROM mapping_templates ORDER BY name`)
	}
	if err != nil {
		return nil, errs.NewTransient("", "failed to list templates", err)
	}
	out := make([]*domain.MappingTemplate, 0, len(rows))
	for _, row := range rows {
		t, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// IncrementUsage bumps a template's usage_count when it's applied to a job.
func (r *TemplateRepo) IncrementUsage(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE mapping_templates SET usage_count = usage_count + 1, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return errs.NewTransient("", "failed to increment template usage", err)
	}
	return nil
}

// Delete removes a template.
func (r *TemplateRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM mapping_templates WHERE id = $1`, id)
	if err != nil {
		return errs.NewTransient("", "failed to delete template", err)
	}
	return checkRowsAffected(res, id, "template")
}
