package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/domain"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/errs"
)

// ProcessingLogRepo persists ProcessingLog rows. A write here is
// best-effort operational visibility, never load-bearing for the
// pipeline's own state machine — callers log and continue rather than
// fail a document over a logging error.
type ProcessingLogRepo struct {
	db *sqlx.DB
}

// Insert records one log entry for documentID.
func (r *ProcessingLogRepo) Insert(ctx context.Context, documentID string, level domain.LogLevel, message string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO processing_logs (id, document_id, level, message)
		VALUES ($1, $2, $3, $4)
	`, uuid.NewString(), documentID, string(level), message)
	if err != nil {
		return errs.NewTransient("", "failed to insert processing log", err)
	}
	return nil
}

// ListByDocument returns every log entry for a document, oldest first.
func (r *ProcessingLogRepo) ListByDocument(ctx context.Context, documentID string) ([]domain.ProcessingLog, error) {
	var out []domain.ProcessingLog
	err := r.db.SelectContext(ctx, &out,
		`SELECT id, document_id, level, message, created_at FROM processing_logs WHERE document_id = $1 ORDER BY created_at ASC`,
		documentID)
	if err != nil {
		return nil, errs.NewTransient("", "failed to list processing logs", err)
	}
	return out, nil
}
