package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/domain"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/errs"
)

// ReviewRepo persists ReviewQueueItem rows: documents that extracted
// successfully but need a human pass, or that failed outright and a
// reviewer should triage.
type ReviewRepo struct {
	db *sqlx.DB
}

type reviewRow struct {
	ID           string         `db:"id"`
	DocumentID   string         `db:"document_id"`
	Reason       string         `db:"reason"`
	ErrorMessage sql.NullString `db:"error_message"`
	ErrorType    sql.NullString `db:"error_type"`
	Priority     int            `db:"priority"`
	Status       string         `db:"status"`
	Notes        sql.NullString `db:"notes"`
}

func (row reviewRow) toDomain() domain.ReviewQueueItem {
	item := domain.ReviewQueueItem{
		ID:         row.ID,
		DocumentID: row.DocumentID,
		Reason:     row.Reason,
		Status:     row.Status,
	}
	return item
}

// CreateIfAbsent inserts a ReviewQueueItem for documentID unless one
// already exists — safe to call from both the extraction path and the
// reconciler's idempotent backfill sweep.
func (r *ReviewRepo) CreateIfAbsent(ctx context.Context, documentID, reason string, priority int, errMsg, errType string) error {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM review_queue_items WHERE document_id = $1)`, documentID)
	if err != nil {
		return errs.NewTransient("", "failed to check review queue", err)
	}
	if exists {
		return nil
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO review_queue_items (id, document_id, reason, error_message, error_type, priority, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
	`, uuid.NewString(), documentID, reason, nullIfEmpty(errMsg), nullIfEmpty(errType), priority)
	if err != nil {
		return errs.NewTransient("", "failed to insert review queue item", err)
	}
	return nil
}

// BackfillMissing finds every needs_review document without a review item
// and creates one. Run by the reconciler's periodic sweep.
func (r *ReviewRepo) BackfillMissing(ctx context.Context) (int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT d.id, d.priority, d.error_message, d.error_type
		FROM documents d
		LEFT JOIN review_queue_items ri ON ri.document_id = d.id
		WHERE d.status = 'needs_review' AND ri.id IS NULL
	`)
	if err != nil {
		return 0, errs.NewTransient("", "failed to find needs-review backfill candidates", err)
	}
	defer rows.Close()

	type candidate struct {
		id       string
		priority int
		errMsg   sql.NullString
		errType  sql.NullString
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.priority, &c.errMsg, &c.errType); err != nil {
			return 0, errs.NewTransient("", "failed to scan backfill candidate", err)
		}
		candidates = append(candidates, c)
	}

	n := 0
	for _, c := range candidates {
		if err := r.CreateIfAbsent(ctx, c.id, "low_confidence_fields", c.priority, c.errMsg.String, c.errType.String); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Get loads one review item by id.
func (r *ReviewRepo) Get(ctx context.Context, id string) (*domain.ReviewQueueItem, error) {
	var row reviewRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM review_queue_items WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NewNotFound("", "review_queue_item", id)
	}
	if err != nil {
		return nil, errs.NewTransient("", "failed to load review item", err)
	}
	item := row.toDomain()
	return &item, nil
}

// List pages through review items, newest first.
func (r *ReviewRepo) List(ctx context.Context, skip, limit int) ([]domain.ReviewQueueItem, error) {
	var rows []reviewRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM review_queue_items ORDER BY created_at DESC OFFSET $1 LIMIT $2`, skip, limit)
	if err != nil {
		return nil, errs.NewTransient("", "failed to list review items", err)
	}
	out := make([]domain.ReviewQueueItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// Resolve marks a review item resolved.
func (r *ReviewRepo) Resolve(ctx context.Context, id, notes string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE review_queue_items SET status = 'resolved', notes = $2, resolved_at = now(), updated_at = now()
		WHERE id = $1
	`, id, nullIfEmpty(notes))
	if err != nil {
		return errs.NewTransient("", "failed to resolve review item", err)
	}
	return checkRowsAffected(res, id, "review_queue_item")
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
