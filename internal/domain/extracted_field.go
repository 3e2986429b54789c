package domain

import "time"

// ValidationStatus is the review lifecycle for a single extracted field.
type ValidationStatus string

const (
	ValidationPending   ValidationStatus = "pending"
	ValidationValid     ValidationStatus = "valid"
	ValidationReviewed  ValidationStatus = "reviewed"
	ValidationCorrected ValidationStatus = "corrected"
)

// ExtractionMethod records how a field's value was produced.
type ExtractionMethod string

const (
	ExtractionVisionLLM   ExtractionMethod = "vision_llm"
	ExtractionTemplate    ExtractionMethod = "template_transform"
	ExtractionManualEntry ExtractionMethod = "manual_entry"
)

// ExtractedField is one leaf value pulled from a Document, flattened out of
// its source Node tree for storage, querying, and review.
type ExtractedField struct {
	ID                string           `db:"id"`
	DocumentID        string           `db:"document_id"`
	FieldPath         string           `db:"field_path"`
	FieldLabel        string           `db:"field_label"`
	FieldType         string           `db:"field_type"`
	GroupName         string           `db:"group_name"`
	SectionName       string           `db:"section_name"`
	FieldOrder        *int             `db:"field_order"`
	Page              int              `db:"page"`
	Value             interface{}      `db:"value"`
	Confidence        float64          `db:"confidence"`
	BoundingBox       *BoundingBox     `db:"bounding_box"`
	ExtractionMethod  ExtractionMethod `db:"extraction_method"`
	ModelVersion      string           `db:"model_version"`
	TokensUsed        int              `db:"tokens_used"`
	SourceLocation    string           `db:"source_location"`
	ExtractionContext string           `db:"extraction_context"`
	ValidationStatus  ValidationStatus `db:"validation_status"`
	NeedsManualReview bool             `db:"needs_manual_review"`
	ReviewedBy        *string          `db:"reviewed_by"`
	ReviewedAt        *time.Time       `db:"reviewed_at"`
	ReviewNotes       *string          `db:"review_notes"`
	CreatedAt         time.Time        `db:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at"`
}

// MaxExtractionContextLen enforces spec's "extraction_context ≤ 200
// characters" invariant at the one place a context string is produced.
const MaxExtractionContextLen = 200

// NeedsReview applies the confidence-threshold rule used throughout the
// review queue: a field below threshold is routed for human review unless
// it has already been explicitly validated.
func (f *ExtractedField) NeedsReview(threshold float64) bool {
	if f.ValidationStatus == ValidationValid || f.ValidationStatus == ValidationReviewed || f.ValidationStatus == ValidationCorrected {
		return false
	}
	return f.Confidence < threshold
}

// ReviewQueueItem is a Document (or specific field within it) awaiting
// human attention, surfaced separately from ExtractedField so the review
// UI can page through work items irrespective of how many low-confidence
// fields a single document produced.
type ReviewQueueItem struct {
	ID           string     `db:"id"`
	DocumentID   string     `db:"document_id"`
	FieldID      *string    `db:"field_id"`
	Reason       string     `db:"reason"`
	Status       string     `db:"status"`
	AssignedTo   *string    `db:"assigned_to"`
	CreatedAt    time.Time  `db:"created_at"`
	ResolvedAt   *time.Time `db:"resolved_at"`
}

// DocumentTranscript is the deterministic, human-readable rendering of a
// Document's full extraction tree, produced once extraction completes.
type DocumentTranscript struct {
	ID             string            `db:"id"`
	DocumentID     string            `db:"document_id"`
	Text           string            `db:"text"`
	SectionIndex   map[string]int    `db:"section_index"`
	FieldLocations map[string]string `db:"field_locations"`
	CreatedAt      time.Time         `db:"created_at"`
}
