package postgres

import (
	"context"
	"encoding/json"
	"math"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/domain"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/errs"
)

// FieldRepo persists ExtractedField rows. Its one load-bearing method,
// BulkInsertTx, is always called from inside the same transaction as the
// document's terminal status update: the fields bulk-insert and the
// terminal transition commit together or not at all.
type FieldRepo struct {
	db *sqlx.DB
}

// BulkInsertTx inserts every field extracted for one document inside tx,
// preserving field_order exactly as the caller assigned it: starting page
// of batch, then position within batch.
func (r *FieldRepo) BulkInsertTx(ctx context.Context, tx *sqlx.Tx, jobID string, fields []domain.ExtractedField) error {
	if len(fields) == 0 {
		return nil
	}
	stmt := `INSERT INTO extracted_fields (id, job_id, document_id, field_path, field_label, field_type,
		group_name, section_name, field_order, page, value, confidence, bounding_box, extraction_method,
		model_version, tokens_used, source_location, extraction_context, validation_status, needs_manual_review)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	for i := range fields {
		f := &fields[i]
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		valueJSON, err := json.Marshal(f.Value)
		if err != nil {
			return err
		}
		valueJSON = sanitizeJSONForPostgres(valueJSON)
		var bboxJSON []byte
		if f.BoundingBox != nil {
			bboxJSON, err = json.Marshal(f.BoundingBox)
			if err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, stmt, f.ID, jobID, f.DocumentID, f.FieldPath, f.FieldLabel, f.FieldType,
			f.GroupName, f.SectionName, f.FieldOrder, f.Page, valueJSON, sanitizeConfidence(f.Confidence), bboxJSON,
			string(f.ExtractionMethod), f.ModelVersion, f.TokensUsed, f.SourceLocation, f.ExtractionContext,
			string(f.ValidationStatus), f.NeedsManualReview); err != nil {
			return errs.NewTransient(jobID, "failed to bulk insert extracted fields", err)
		}
	}
	return nil
}

// UpdateField applies a manual correction to one field: a new value, a
// validation-status transition, the needs-manual-review flag, and/or review
// notes. Moving validation_status to reviewed or corrected stamps
// reviewed_at and reviewed_by, matching how a human reviewer's action is
// the only thing that ever sets those two statuses.
type FieldUpdate struct {
	Value             *interface{}
	ValidationStatus  *domain.ValidationStatus
	NeedsManualReview *bool
	ReviewNotes       *string
	ReviewedBy        string
}

func (r *FieldRepo) UpdateField(ctx context.Context, fieldID string, update FieldUpdate) (*domain.ExtractedField, error) {
	var row fieldRow
	if err := r.db.GetContext(ctx, &row, `SELECT * FROM extracted_fields WHERE id = $1`, fieldID); err != nil {
		return nil, errs.NewTransient("", "failed to load field for update", err)
	}

	if update.Value != nil {
		valueJSON, err := json.Marshal(*update.Value)
		if err != nil {
			return nil, err
		}
		row.Value = sanitizeJSONForPostgres(valueJSON)
	}
	if update.NeedsManualReview != nil {
		row.NeedsManualReview = *update.NeedsManualReview
	}
	var reviewNotes *string
	if update.ReviewNotes != nil {
		reviewNotes = update.ReviewNotes
	}
	status := row.ValidationStatus
	if update.ValidationStatus != nil {
		status = string(*update.ValidationStatus)
	}

	var reviewedBy *string
	var reviewedAt *time.Time
	if status == string(domain.ValidationReviewed) || status == string(domain.ValidationCorrected) {
		now := time.Now()
		reviewedAt = &now
		if update.ReviewedBy != "" {
			reviewedBy = &update.ReviewedBy
		}
	}

	stmt := `UPDATE extracted_fields SET value = $1, validation_status = $2, needs_manual_review = $3,
		review_notes = COALESCE($4, review_notes), reviewed_by = COALESCE($5, reviewed_by),
		reviewed_at = COALESCE($6, reviewed_at), updated_at = now()
		WHERE id = $7`
	if _, err := r.db.ExecContext(ctx, stmt, row.Value, status, row.NeedsManualReview, reviewNotes, reviewedBy,
		reviewedAt, fieldID); err != nil {
		return nil, errs.NewTransient("", "failed to update extracted field", err)
	}

	updated, err := r.getByID(ctx, fieldID)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *FieldRepo) getByID(ctx context.Context, fieldID string) (*domain.ExtractedField, error) {
	var row fieldRow
	if err := r.db.GetContext(ctx, &row, `SELECT * FROM extracted_fields WHERE id = $1`, fieldID); err != nil {
		return nil, errs.NewTransient("", "failed to reload updated field", err)
	}
	f, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// PageGroup is every field extracted from one page, in persisted order.
type PageGroup struct {
	Page   int                     `json:"page"`
	Fields []domain.ExtractedField `json:"fields"`
}

// GroupedByPage buckets a document's fields by page, each page's fields
// kept in field_order, for the page-by-page review UI.
func (r *FieldRepo) GroupedByPage(ctx context.Context, documentID string) ([]PageGroup, error) {
	fields, err := r.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return groupByPage(fields), nil
}

// groupByPage is the pure bucketing computation behind GroupedByPage,
// separated out so it can be exercised without a database connection.
// fields is assumed already ordered by (page, field_order), matching what
// ListByDocument returns — first-seen page order is preserved rather than
// sorted, since the caller's order is already the persisted order.
func groupByPage(fields []domain.ExtractedField) []PageGroup {
	order := make([]int, 0)
	byPage := make(map[int][]domain.ExtractedField)
	for _, f := range fields {
		if _, ok := byPage[f.Page]; !ok {
			order = append(order, f.Page)
		}
		byPage[f.Page] = append(byPage[f.Page], f)
	}
	groups := make([]PageGroup, 0, len(order))
	for _, page := range order {
		groups = append(groups, PageGroup{Page: page, Fields: byPage[page]})
	}
	return groups
}

// Statistics summarizes a document's extracted fields: volume, confidence,
// review load, and the spread of validation outcomes.
type Statistics struct {
	DocumentID             string                           `json:"document_id"`
	TotalFields            int                              `json:"total_fields"`
	UniquePages            int                              `json:"unique_pages"`
	UniqueGroups           int                              `json:"unique_groups"`
	AverageConfidence      float64                          `json:"avg_confidence"`
	NeedsReview            int                              `json:"needs_review"`
	ValidationStatusCounts map[domain.ValidationStatus]int  `json:"validation_status_counts"`
}

// Statistics computes a Statistics summary for one document's fields.
func (r *FieldRepo) Statistics(ctx context.Context, documentID string) (*Statistics, error) {
	fields, err := r.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return computeStatistics(documentID, fields), nil
}

// computeStatistics is the pure aggregation computation behind Statistics,
// separated out so it can be exercised without a database connection.
func computeStatistics(documentID string, fields []domain.ExtractedField) *Statistics {
	stats := &Statistics{
		DocumentID:             documentID,
		TotalFields:            len(fields),
		ValidationStatusCounts: make(map[domain.ValidationStatus]int),
	}
	if len(fields) == 0 {
		return stats
	}

	pages := make(map[int]bool)
	groups := make(map[string]bool)
	var confidenceSum float64
	for _, f := range fields {
		pages[f.Page] = true
		if f.GroupName != "" {
			groups[f.GroupName] = true
		}
		confidenceSum += f.Confidence
		if f.NeedsManualReview {
			stats.NeedsReview++
		}
		stats.ValidationStatusCounts[f.ValidationStatus]++
	}
	stats.UniquePages = len(pages)
	stats.UniqueGroups = len(groups)
	stats.AverageConfidence = math.Round(confidenceSum/float64(len(fields))*1000) / 1000
	return stats
}

type fieldRow struct {
	ID                string  `db:"id"`
	DocumentID        string  `db:"document_id"`
	FieldPath         string  `db:"field_path"`
	FieldLabel        string  `db:"field_label"`
	FieldType         string  `db:"field_type"`
	GroupName         string  `db:"group_name"`
	SectionName       string  `db:"section_name"`
	FieldOrder        *int    `db:"field_order"`
	Page              int     `db:"page"`
	Value             []byte  `db:"value"`
	Confidence        float64 `db:"confidence"`
	BoundingBox       []byte  `db:"bounding_box"`
	ExtractionMethod  string  `db:"extraction_method"`
	ModelVersion      string  `db:"model_version"`
	TokensUsed        int     `db:"tokens_used"`
	SourceLocation    string  `db:"source_location"`
	ExtractionContext string  `db:"extraction_context"`
	ValidationStatus  string  `db:"validation_status"`
	NeedsManualReview bool    `db:"needs_manual_review"`
}

func (row fieldRow) toDomain() (domain.ExtractedField, error) {
	var value interface{}
	if len(row.Value) > 0 {
		if err := json.Unmarshal(row.Value, &value); err != nil {
			return domain.ExtractedField{}, err
		}
	}
	var bbox *domain.BoundingBox
	if len(row.BoundingBox) > 0 {
		bbox = &domain.BoundingBox{}
		if err := json.Unmarshal(row.BoundingBox, bbox); err != nil {
			return domain.ExtractedField{}, err
		}
	}
	return domain.ExtractedField{
		ID:                row.ID,
		DocumentID:        row.DocumentID,
		FieldPath:         row.FieldPath,
		FieldLabel:        row.FieldLabel,
		FieldType:         row.FieldType,
		GroupName:         row.GroupName,
		SectionName:       row.SectionName,
		FieldOrder:        row.FieldOrder,
		Page:              row.Page,
		Value:             value,
		Confidence:        row.Confidence,
		BoundingBox:       bbox,
		ExtractionMethod:  domain.ExtractionMethod(row.ExtractionMethod),
		ModelVersion:      row.ModelVersion,
		TokensUsed:        row.TokensUsed,
		SourceLocation:    row.SourceLocation,
		ExtractionContext: row.ExtractionContext,
		ValidationStatus:  domain.ValidationStatus(row.ValidationStatus),
		NeedsManualReview: row.NeedsManualReview,
	}, nil
}

// ListByDocument returns every field for a document, ordered exactly as
// persisted (page, then field_order) — the order the template engine and
// export pipeline consume fields in.
func (r *FieldRepo) ListByDocument(ctx context.Context, documentID string) ([]domain.ExtractedField, error) {
	var rows []fieldRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM extracted_fields WHERE document_id = $1 ORDER BY page, field_order`, documentID)
	if err != nil {
		return nil, errs.NewTransient("", "failed to list extracted fields", err)
	}
	out := make([]domain.ExtractedField, 0, len(rows))
	for _, row := range rows {
		f, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

var (
	nullUnicodeEscape    = regexp.MustCompile(`\\u0000`)
	controlUnicodeEscape = regexp.MustCompile(`\\u00[01][0-9a-fA-F]`)
)

// sanitizeJSONForPostgres strips Unicode escapes PostgreSQL's JSONB type
// rejects: a \u0000 null-character escape is dropped outright, and
// \u0001 through \u001F control-character escapes are replaced with a
// space. Vision-LLM output occasionally embeds these when a source
// document has stray control bytes in its text layer.
func sanitizeJSONForPostgres(jsonBytes []byte) []byte {
	result := nullUnicodeEscape.ReplaceAll(jsonBytes, []byte{})
	return controlUnicodeEscape.ReplaceAll(result, []byte(" "))
}

// sanitizeConfidence clamps to [0.0, 1.0] and rounds to 4 decimal places —
// PostgreSQL's float column can otherwise round-trip a value like
// 0.9632000000000001, which isn't byte-identical to what was inserted.
func sanitizeConfidence(confidence float64) float64 {
	if confidence < 0.0 {
		return 0.0
	}
	if confidence > 1.0 {
		return 1.0
	}
	return float64(int(confidence*10000+0.5)) / 10000
}
