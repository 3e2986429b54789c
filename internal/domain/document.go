package domain

import "time"

// DocumentStatus is the Document state-machine's set of states.
type DocumentStatus string

const (
	DocPending     DocumentStatus = "pending"
	DocQueued      DocumentStatus = "queued"
	DocProcessing  DocumentStatus = "processing"
	DocCompleted   DocumentStatus = "completed"
	DocFailed      DocumentStatus = "failed"
	DocNeedsReview DocumentStatus = "needs_review"
)

// Terminal reports whether status is one from which a Document only moves
// on via an explicit retry (failed, needs_review) or never (completed).
func (s DocumentStatus) Terminal() bool {
	switch s {
	case DocCompleted, DocFailed, DocNeedsReview:
		return true
	default:
		return false
	}
}

// Document is one file discovered under a Job's source.
type Document struct {
	ID           string         `db:"id"`
	JobID        string         `db:"job_id"`
	SourcePath   string         `db:"source_path"`
	FileName     string         `db:"file_name"`
	Size         int64          `db:"size"`
	MimeType     string         `db:"mime_type"`
	DocumentType string         `db:"document_type"`
	Status       DocumentStatus `db:"status"`
	Priority     int            `db:"priority"`
	RetryCount   int            `db:"retry_count"`
	MaxRetries   int            `db:"max_retries"`
	WorkerID     *string        `db:"worker_id"`

	// Per-run telemetry (§3 Document).
	ExtractionTimeMS    *int64   `db:"extraction_time_ms"`
	TokenUsage          TokenUsage `db:"token_usage"`
	Cost                float64  `db:"cost"`
	TotalFieldsExtracted int     `db:"total_fields_extracted"`
	FieldsNeedingReview  int     `db:"fields_needing_review"`
	AverageConfidence    float64 `db:"average_confidence"`
	ProcessingStage      string  `db:"processing_stage"`
	PagesProcessed       int     `db:"pages_processed"`
	TotalPages           int     `db:"total_pages"`

	ErrorMessage *string `db:"error_message"`
	ErrorType    *string `db:"error_type"`

	QueuedAt              *time.Time `db:"queued_at"`
	ProcessingStartedAt   *time.Time `db:"processing_started_at"`
	ProcessingCompletedAt *time.Time `db:"processing_completed_at"`
	CreatedAt             time.Time  `db:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at"`
}

// TokenUsage is the prompt/completion token breakdown for one document's
// extraction run, persisted as a JSONB column.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// jobTransitions and documentTransitions enumerate every legal state
// transition. Anything not listed here is an illegal transition.
var jobTransitions = map[JobStatus][]JobStatus{
	JobPending:   {JobRunning, JobStopped},
	JobRunning:   {JobPaused, JobCompleted, JobFailed, JobStopped},
	JobPaused:    {JobRunning, JobStopped},
	JobCompleted: {},
	JobFailed:    {},
	JobStopped:   {},
}

var documentTransitions = map[DocumentStatus][]DocumentStatus{
	DocPending:     {DocQueued},
	DocQueued:      {DocProcessing, DocFailed},
	DocProcessing:  {DocCompleted, DocFailed, DocNeedsReview, DocQueued},
	DocFailed:      {DocQueued},
	DocNeedsReview: {DocQueued},
	DocCompleted:   {},
}

// CanTransitionJob reports whether from -> to is an allowed Job transition.
func CanTransitionJob(from, to JobStatus) bool {
	for _, s := range jobTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanTransitionDocument reports whether from -> to is an allowed Document
// transition. A failed document may re-enter the queue up to MaxRetries
// times; callers are responsible for enforcing the retry ceiling.
func CanTransitionDocument(from, to DocumentStatus) bool {
	for _, s := range documentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
