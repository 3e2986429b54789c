package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/domain"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/errs"
)

// DocumentRepo persists Document rows and implements the one concurrency
// primitive the whole pipeline depends on: the optimistic
// `WHERE status='queued'` guard on the transition into `processing` that
// gives a document's worker lease to exactly one caller even with many
// worker processes racing the same row.
type DocumentRepo struct {
	db *sqlx.DB
}

type documentRow struct {
	ID                    string         `db:"id"`
	JobID                 string         `db:"job_id"`
	SourcePath            string         `db:"source_path"`
	FileName              string         `db:"file_name"`
	Size                  int64          `db:"size"`
	MimeType              string         `db:"mime_type"`
	DocumentType          string         `db:"document_type"`
	Status                string         `db:"status"`
	Priority              int            `db:"priority"`
	RetryCount            int            `db:"retry_count"`
	MaxRetries            int            `db:"max_retries"`
	WorkerID              sql.NullString `db:"worker_id"`
	ExtractionTimeMS      sql.NullInt64  `db:"extraction_time_ms"`
	TokenUsage            []byte         `db:"token_usage"`
	Cost                  float64        `db:"cost"`
	TotalFieldsExtracted  int            `db:"total_fields_extracted"`
	FieldsNeedingReview   int            `db:"fields_needing_review"`
	AverageConfidence     float64        `db:"average_confidence"`
	ProcessingStage       string         `db:"processing_stage"`
	PagesProcessed        int            `db:"pages_processed"`
	TotalPages            int            `db:"total_pages"`
	ErrorMessage          sql.NullString `db:"error_message"`
	ErrorType             sql.NullString `db:"error_type"`
	QueuedAt              sql.NullTime   `db:"queued_at"`
	ProcessingStartedAt   sql.NullTime   `db:"processing_started_at"`
	ProcessingCompletedAt sql.NullTime   `db:"processing_completed_at"`
	CreatedAt             sql.NullTime   `db:"created_at"`
	UpdatedAt             sql.NullTime   `db:"updated_at"`
}

func (r documentRow) toDomain() (*domain.Document, error) {
	var tu domain.TokenUsage
	if len(r.TokenUsage) > 0 {
		if err := json.Unmarshal(r.TokenUsage, &tu); err != nil {
			return nil, err
		}
	}
	d := &domain.Document{
		ID:                   r.ID,
		JobID:                r.JobID,
		SourcePath:           r.SourcePath,
		FileName:             r.FileName,
		Size:                 r.Size,
		MimeType:             r.MimeType,
		DocumentType:         r.DocumentType,
		Status:               domain.DocumentStatus(r.Status),
		Priority:             r.Priority,
		RetryCount:           r.RetryCount,
		MaxRetries:           r.MaxRetries,
		TokenUsage:           tu,
		Cost:                 r.Cost,
		TotalFieldsExtracted: r.TotalFieldsExtracted,
		FieldsNeedingReview:  r.FieldsNeedingReview,
		AverageConfidence:    r.AverageConfidence,
		ProcessingStage:      r.ProcessingStage,
		PagesProcessed:       r.PagesProcessed,
		TotalPages:           r.TotalPages,
		CreatedAt:            r.CreatedAt.Time,
		UpdatedAt:            r.UpdatedAt.Time,
	}
	if r.WorkerID.Valid {
		d.WorkerID = &r.WorkerID.String
	}
	if r.ExtractionTimeMS.Valid {
		d.ExtractionTimeMS = &r.ExtractionTimeMS.Int64
	}
	if r.ErrorMessage.Valid {
		d.ErrorMessage = &r.ErrorMessage.String
	}
	if r.ErrorType.Valid {
		d.ErrorType = &r.ErrorType.String
	}
	if r.QueuedAt.Valid {
		d.QueuedAt = &r.QueuedAt.Time
	}
	if r.ProcessingStartedAt.Valid {
		d.ProcessingStartedAt = &r.ProcessingStartedAt.Time
	}
	if r.ProcessingCompletedAt.Valid {
		d.ProcessingCompletedAt = &r.ProcessingCompletedAt.Time
	}
	return d, nil
}

// BulkInsert inserts many newly discovered documents in one transaction,
// the discovery worker's batch-insert step. Each Document that arrives
// without an ID is assigned a fresh UUID.
func (r *DocumentRepo) BulkInsert(ctx context.Context, docs []*domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	return withTxTemplate(ctx, r.db, func(tx *sqlx.Tx) error {
		stmt := `INSERT INTO documents (id, job_id, source_path, file_name, size, mime_type,
			document_type, status, priority, retry_count, max_retries, token_usage)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
		for _, d := range docs {
			if d.ID == "" {
				d.ID = uuid.NewString()
			}
			tu, err := json.Marshal(d.TokenUsage)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, stmt, d.ID, d.JobID, d.SourcePath, d.FileName,
				d.Size, d.MimeType, d.DocumentType, string(d.Status), d.Priority,
				d.RetryCount, d.MaxRetries, tu); err != nil {
				return errs.NewTransient(d.JobID, "failed to bulk insert documents", err)
			}
		}
		return nil
	})
}

// withTxTemplate is a small helper mirroring DB.WithTx for repos that only
// hold a *sqlx.DB, not the full DB wrapper (keeps each repo independently
// testable against a bare connection).
func withTxTemplate(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Get loads one Document by id.
func (r *DocumentRepo) Get(ctx context.Context, id string) (*domain.Document, error) {
	var row documentRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM documents WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NewNotFound("", "document", id)
	}
	if err != nil {
		return nil, errs.NewTransient("", "failed to load document", err)
	}
	return row.toDomain()
}

// ListByJob pages through a job's documents, optionally filtered by status.
func (r *DocumentRepo) ListByJob(ctx context.Context, jobID, statusFilter string, skip, limit int) ([]*domain.Document, error) {
	var rows []documentRow
	var err error
	if statusFilter != "" {
		err = r.db.SelectContext(ctx, &rows,
			`SELECT * FROM documents WHERE job_id = $1 AND status = $2 ORDER BY created_at OFFSET $3 LIMIT $4`,
			jobID, statusFilter, skip, limit)
	} else {
		err = r.db.SelectContext(ctx, &rows,
			`SELECT * FROM documents WHERE job_id = $1 ORDER BY created_at OFFSET $2 LIMIT $3`,
			jobID, skip, limit)
	}
	if err != nil {
		return nil, errs.NewTransient(jobID, "failed to list documents", err)
	}
	out := make([]*domain.Document, 0, len(rows))
	for _, row := range rows {
		d, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// CountExisting reports how many documents already exist for a job —
// the idempotent-discovery check: if documents are already present,
// discovery is skipped.
func (r *DocumentRepo) CountExisting(ctx context.Context, jobID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM documents WHERE job_id = $1`, jobID)
	if err != nil {
		return 0, errs.NewTransient(jobID, "failed to count documents", err)
	}
	return n, nil
}

// MarkQueued transitions a pending, failed or needs_review document to
// queued, stamping queued_at.
func (r *DocumentRepo) MarkQueued(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE documents SET status = 'queued', queued_at = now(), updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'failed', 'needs_review')
	`, id)
	if err != nil {
		return errs.NewTransient("", "failed to mark document queued", err)
	}
	return checkRowsAffected(res, id, "document")
}

// ClaimForProcessing is the optimistic lease: it only succeeds if the
// document is still `queued`, so two workers racing the same extraction
// task can never both win it. The caller must check the returned bool.
func (r *DocumentRepo) ClaimForProcessing(ctx context.Context, id, workerID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE documents SET
			status = 'processing',
			worker_id = $2,
			processing_started_at = now(),
			updated_at = now()
		WHERE id = $1 AND status = 'queued'
	`, id, workerID)
	if err != nil {
		return false, errs.NewTransient("", "failed to claim document", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// UpdateProgress records free-form, non-terminal telemetry while an
// extraction is in flight (processing_stage, pages_processed, total_pages)
// without touching status.
func (r *DocumentRepo) UpdateProgress(ctx context.Context, id, stage string, pagesProcessed, totalPages int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE documents SET processing_stage = $2, pages_processed = $3, total_pages = $4, updated_at = now()
		WHERE id = $1
	`, id, stage, pagesProcessed, totalPages)
	if err != nil {
		return errs.NewTransient("", "failed to update document progress", err)
	}
	return nil
}

// CompleteTelemetry is the shape of per-document telemetry computed at the
// end of extraction.
type CompleteTelemetry struct {
	ExtractionTimeMS     int64
	TokenUsage           domain.TokenUsage
	Cost                 float64
	TotalFieldsExtracted int
	FieldsNeedingReview  int
	AverageConfidence    float64
}

// Complete applies the terminal transition to completed/failed/needs_review
// together with the run's telemetry, inside tx so it commits atomically
// with the field bulk-insert that precedes it.
func (r *DocumentRepo) Complete(ctx context.Context, tx *sqlx.Tx, id string, status domain.DocumentStatus, telemetry CompleteTelemetry, errMsg, errType *string) error {
	tu, err := json.Marshal(telemetry.TokenUsage)
	if err != nil {
		return err
	}
	exec := tx.ExecContext
	_, err = exec(ctx, `
		UPDATE documents SET
			status = $2,
			extraction_time_ms = $3,
			token_usage = $4,
			cost = $5,
			total_fields_extracted = $6,
			fields_needing_review = $7,
			average_confidence = $8,
			error_message = $9,
			error_type = $10,
			processing_completed_at = now(),
			updated_at = now()
		WHERE id = $1
	`, id, string(status), telemetry.ExtractionTimeMS, tu, telemetry.Cost,
		telemetry.TotalFieldsExtracted, telemetry.FieldsNeedingReview, telemetry.AverageConfidence,
		errMsg, errType)
	if err != nil {
		return errs.NewTransient("", "failed to complete document", err)
	}
	return nil
}

// Fail marks a document failed outside of the bulk-field transaction (used
// for early failures — e.g. fetch/rasterization — that never produced any
// fields to persist).
func (r *DocumentRepo) Fail(ctx context.Context, id string, errMsg, errType string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE documents SET status = 'failed', error_message = $2, error_type = $3,
			processing_completed_at = now(), updated_at = now()
		WHERE id = $1
	`, id, errMsg, errType)
	if err != nil {
		return errs.NewTransient("", "failed to fail document", err)
	}
	return nil
}

// Retry re-queues a terminal document, incrementing retry_count. Callers
// must already have checked retry_count < max_retries.
func (r *DocumentRepo) Retry(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE documents SET
			status = 'queued',
			retry_count = retry_count + 1,
			worker_id = NULL,
			error_message = NULL,
			error_type = NULL,
			queued_at = now(),
			updated_at = now()
		WHERE id = $1 AND status IN ('failed', 'needs_review') AND retry_count < max_retries
	`, id)
	if err != nil {
		return errs.NewTransient("", "failed to retry document", err)
	}
	return checkRowsAffected(res, id, "document")
}

// RequeueAfterTransientFailure reverts a document from `processing` back to
// `queued` after a transient extraction error, bumping retry_count so the
// document's own max_retries ceiling is enforced across redeliveries even
// though asynq tracks its own independent retry counter. Returns false once
// retry_count has reached max_retries — the caller must then fail the
// document terminally instead of re-enqueueing it.
func (r *DocumentRepo) RequeueAfterTransientFailure(ctx context.Context, id, errMsg, errType string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE documents SET
			status = 'queued',
			retry_count = retry_count + 1,
			worker_id = NULL,
			error_message = $2,
			error_type = $3,
			queued_at = now(),
			updated_at = now()
		WHERE id = $1 AND status = 'processing' AND retry_count < max_retries
	`, id, errMsg, errType)
	if err != nil {
		return false, errs.NewTransient("", "failed to requeue document after transient failure", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// ReconcileStuck reverts every document still `processing` whose lease is
// older than stallThreshold back to `queued` — the core of the periodic
// reconciler. Returns the reverted document IDs for logging/testing.
func (r *DocumentRepo) ReconcileStuck(ctx context.Context, stallThreshold time.Duration) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `
		UPDATE documents SET status = 'queued', worker_id = NULL, queued_at = now(), updated_at = now()
		WHERE status = 'processing' AND processing_started_at < $1
		RETURNING id
	`, time.Now().Add(-stallThreshold))
	if err != nil {
		return nil, errs.NewTransient("", "failed to reconcile stuck documents", err)
	}
	return ids, nil
}

func checkRowsAffected(res sql.Result, id, resource string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errs.NewTransient("", "failed to read rows affected", err)
	}
	if n == 0 {
		return errs.NewIllegalTransition("", resource, "", "")
	}
	return nil
}
