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

// JobRepo persists Job rows and enforces nothing itself — state-machine
// legality is internal/jobmanager's job, this layer is pure storage.
type JobRepo struct {
	db *sqlx.DB
}

// jobRow is the flat, JSONB-wrapped shape sqlx scans directly off the
// jobs table before Create/Get reinflate it into domain.Job.
type jobRow struct {
	ID                   string         `db:"id"`
	Name                 string         `db:"name"`
	UserID               sql.NullString `db:"user_id"`
	SourceType           string         `db:"source_type"`
	SourceConfig         []byte         `db:"source_config"`
	ProcessingConfig     []byte         `db:"processing_config"`
	ProcessingOptions    []byte         `db:"processing_options"`
	Status               string         `db:"status"`
	TotalDocuments       int            `db:"total_documents"`
	ProcessedDocuments   int            `db:"processed_documents"`
	FailedDocuments      int            `db:"failed_documents"`
	NeedsReviewDocuments int            `db:"needs_review_documents"`
	CreatedAt            sql.NullTime   `db:"created_at"`
	StartedAt            sql.NullTime   `db:"started_at"`
	CompletedAt          sql.NullTime   `db:"completed_at"`
	UpdatedAt            sql.NullTime   `db:"updated_at"`
}

func (r jobRow) toDomain() (*domain.Job, error) {
	var sc domain.SourceConfig
	if err := json.Unmarshal(r.SourceConfig, &sc); err != nil {
		return nil, err
	}
	var pc domain.ProcessingConfig
	if err := json.Unmarshal(r.ProcessingConfig, &pc); err != nil {
		return nil, err
	}
	var po domain.ProcessingOptions
	if err := json.Unmarshal(r.ProcessingOptions, &po); err != nil {
		return nil, err
	}

	j := &domain.Job{
		ID:                   r.ID,
		Name:                 r.Name,
		SourceType:           domain.SourceType(r.SourceType),
		SourceConfig:         sc,
		ProcessingConfig:     pc,
		ProcessingOptions:    po,
		Status:               domain.JobStatus(r.Status),
		TotalDocuments:       r.TotalDocuments,
		ProcessedDocuments:   r.ProcessedDocuments,
		FailedDocuments:      r.FailedDocuments,
		NeedsReviewDocuments: r.NeedsReviewDocuments,
		CreatedAt:            r.CreatedAt.Time,
		UpdatedAt:            r.UpdatedAt.Time,
	}
	if r.UserID.Valid {
		j.UserID = &r.UserID.String
	}
	if r.StartedAt.Valid {
		j.StartedAt = &r.StartedAt.Time
	}
	if r.CompletedAt.Valid {
		j.CompletedAt = &r.CompletedAt.Time
	}
	return j, nil
}

// Create inserts a new Job, assigning it a fresh UUID if ID is empty.
func (r *JobRepo) Create(ctx context.Context, j *domain.Job) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	sc, err := json.Marshal(j.SourceConfig)
	if err != nil {
		return err
	}
	pc, err := json.Marshal(j.ProcessingConfig)
	if err != nil {
		return err
	}
	po, err := json.Marshal(j.ProcessingOptions)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO jobs (id, name, user_id, source_type, source_config, processing_config,
			processing_options, status, total_documents, processed_documents, failed_documents,
			needs_review_documents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, j.ID, j.Name, j.UserID, string(j.SourceType), sc, pc, po, string(j.Status),
		j.TotalDocuments, j.ProcessedDocuments, j.FailedDocuments, j.NeedsReviewDocuments)
	if err != nil {
		return errs.NewTransient(j.ID, "failed to insert job", err)
	}
	return nil
}

// Get loads one Job by id.
func (r *JobRepo) Get(ctx context.Context, id string) (*domain.Job, error) {
	var row jobRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM jobs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NewNotFound("", "job", id)
	}
	if err != nil {
		return nil, errs.NewTransient(id, "failed to load job", err)
	}
	return row.toDomain()
}

// List returns jobs matching an optional status filter, newest first.
func (r *JobRepo) List(ctx context.Context, statusFilter string, skip, limit int) ([]*domain.Job, error) {
	var rows []jobRow
	var err error
	if statusFilter != "" {
		err = r.db.SelectContext(ctx, &rows,
			`SELECT * FROM jobs WHERE status = $1 ORDER BY created_at DESC OFFSET $2 LIMIT $3`,
			statusFilter, skip, limit)
	} else {
		err = r.db.SelectContext(ctx, &rows,
			`SELECT * FROM jobs ORDER BY created_at DESC OFFSET $1 LIMIT $2`, skip, limit)
	}
	if err != nil {
		return nil, errs.NewTransient("", "failed to list jobs", err)
	}

	out := make([]*domain.Job, 0, len(rows))
	for _, row := range rows {
		j, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

// UpdateStatus applies a new status plus whichever timestamp that
// transition sets (started_at on first run, completed_at on terminal).
func (r *JobRepo) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, setStarted, setCompleted bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET
			status = $2,
			started_at = CASE WHEN $3 THEN now() ELSE started_at END,
			completed_at = CASE WHEN $4 THEN now() ELSE completed_at END,
			updated_at = now()
		WHERE id = $1
	`, id, string(status), setStarted, setCompleted)
	if err != nil {
		return errs.NewTransient(id, "failed to update job status", err)
	}
	return nil
}

// IncrementCounters atomically bumps a job's processed/failed/needs_review
// counters, used whenever a document reaches a terminal state.
func (r *JobRepo) IncrementCounters(ctx context.Context, id string, processedDelta, failedDelta, needsReviewDelta int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET
			processed_documents = processed_documents + $2,
			failed_documents = failed_documents + $3,
			needs_review_documents = needs_review_documents + $4,
			updated_at = now()
		WHERE id = $1
	`, id, processedDelta, failedDelta, needsReviewDelta)
	if err != nil {
		return errs.NewTransient(id, "failed to increment job counters", err)
	}
	return nil
}

// SetTotalDocuments records the discovery-computed document count.
func (r *JobRepo) SetTotalDocuments(ctx context.Context, id string, total int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET total_documents = $2, updated_at = now() WHERE id = $1`, id, total)
	if err != nil {
		return errs.NewTransient(id, "failed to set total_documents", err)
	}
	return nil
}

// Delete cascades: documents, fields, transcripts, review items, and
// processing logs all carry ON DELETE CASCADE foreign keys to documents,
// which itself cascades from jobs, so one statement removes the whole
// tree (fields/transcripts/reviews/logs, then documents, then job).
func (r *JobRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return errs.NewTransient(id, "failed to delete job", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errs.NewNotFound("", "job", id)
	}
	return nil
}

// TerminalDocumentCounts returns how many of a job's documents are in each
// of {completed, failed, needs_review}, plus the job's total document
// count — the reconciler's input for deciding whether a running job has
// converged to completed.
func (r *JobRepo) TerminalDocumentCounts(ctx context.Context, jobID string) (completed, failed, needsReview, total int, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COUNT(*) FILTER (WHERE status = 'needs_review'),
			COUNT(*)
		FROM documents WHERE job_id = $1
	`, jobID).Scan(&completed, &failed, &needsReview, &total)
	if err != nil {
		return 0, 0, 0, 0, errs.NewTransient(jobID, "failed to count terminal documents", err)
	}
	return completed, failed, needsReview, total, nil
}

// RunningJobIDs lists every job currently in the running status, the
// reconciler's sweep target.
func (r *JobRepo) RunningJobIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `SELECT id FROM jobs WHERE status = 'running'`)
	if err != nil {
		return nil, errs.NewTransient("", "failed to list running jobs", err)
	}
	return ids, nil
}
