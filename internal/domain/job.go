// Package domain holds the entity types shared by every component:
// Job, Document, ExtractedField, DocumentTranscript, ReviewQueueItem,
// MappingTemplate, and the hierarchical extraction Node tree.
package domain

import "time"

// JobStatus is the Job state-machine's set of states.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobPaused    JobStatus = "paused"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobStopped   JobStatus = "stopped"
)

// JobMode records a job's discovery mode: a single sweep, or continuous.
// Discovery runs one sweep per started job in either mode; no code
// periodically re-discovers new documents for continuous jobs.
type JobMode string

const (
	ModeOnce       JobMode = "once"
	ModeContinuous JobMode = "continuous"
)

// SourceType tags which storage gateway variant a Job's source_config targets.
type SourceType string

const (
	SourceFolder     SourceType = "folder"
	SourceObjectStore SourceType = "object-store"
	SourceRemoteDrive SourceType = "remote-drive"
)

// SourceConfig is the tagged source descriptor. Provider is only meaningful
// for object-store (bucket provider name) and remote-drive (google_drive,
// onedrive) sources.
type SourceConfig struct {
	Type     SourceType `json:"type" db:"type"`
	Path     string     `json:"path,omitempty" db:"path"`
	Provider string     `json:"provider,omitempty" db:"provider"`
	FileID   string     `json:"file_id,omitempty" db:"file_id"`
	FileName string     `json:"file_name,omitempty" db:"file_name"`
	Bucket   string     `json:"bucket,omitempty" db:"bucket"`
	SessionID string    `json:"session_id,omitempty" db:"session_id"`
	FileTypes []string  `json:"file_types,omitempty" db:"file_types"`
}

// ProcessingConfig governs discovery cadence.
type ProcessingConfig struct {
	Mode                JobMode `json:"mode" db:"mode"`
	DiscoveryBatchSize  int     `json:"discovery_batch_size" db:"discovery_batch_size"`
}

// ProcessingOptions are the per-job tunables inherited by every Document.
type ProcessingOptions struct {
	Priority            int    `json:"priority" db:"priority"`
	MaxRetries          int    `json:"max_retries" db:"max_retries"`
	ParallelWorkers     int    `json:"parallel_workers" db:"parallel_workers"`
	WorkerConcurrency   int    `json:"worker_concurrency" db:"worker_concurrency"`
	CheckpointInterval  int    `json:"checkpoint_interval" db:"checkpoint_interval"`
	SignatureDetection  bool   `json:"signature_detection" db:"signature_detection"`
	DocumentType        string `json:"document_type,omitempty" db:"document_type"`
}

// DefaultProcessingOptions mirrors the original service's conservative
// defaults (original_source/backend-bulk/app/models/schemas.py).
func DefaultProcessingOptions() ProcessingOptions {
	return ProcessingOptions{
		Priority:           3,
		MaxRetries:         3,
		ParallelWorkers:    5,
		WorkerConcurrency:  10,
		CheckpointInterval: 10,
	}
}

// Job is a user-submitted unit of work representing one source to ingest.
type Job struct {
	ID                string            `db:"id"`
	Name              string            `db:"name"`
	UserID            *string           `db:"user_id"`
	SourceType        SourceType        `db:"source_type"`
	SourceConfig      SourceConfig      `db:"source_config"`
	ProcessingConfig  ProcessingConfig  `db:"processing_config"`
	ProcessingOptions ProcessingOptions `db:"processing_options"`
	Status            JobStatus         `db:"status"`
	TotalDocuments      int `db:"total_documents"`
	ProcessedDocuments  int `db:"processed_documents"`
	FailedDocuments     int `db:"failed_documents"`
	NeedsReviewDocuments int `db:"needs_review_documents"`
	CreatedAt   time.Time  `db:"created_at"`
	StartedAt   *time.Time `db:"started_at"`
	CompletedAt *time.Time `db:"completed_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// Terminal reports whether the job has reached a state from which it cannot
// transition except through operator intervention.
func (j *Job) Terminal() bool {
	switch j.Status {
	case JobCompleted, JobFailed, JobStopped:
		return true
	default:
		return false
	}
}
