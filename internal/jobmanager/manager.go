// Package jobmanager enforces the Job and Document state machines on top
// of internal/postgres's plain storage layer, and runs the periodic
// reconciler that recovers stuck work and converges a running job to
// completed.
package jobmanager

import (
	"context"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/broker"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/domain"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/errs"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/logging"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/postgres"
)

// Manager is the only component allowed to drive a Job or Document across
// a state-machine transition; every other package calls into it rather
// than writing status columns directly.
type Manager struct {
	db     *postgres.DB
	broker *broker.Broker
	logger *logging.Logger
}

// New builds a Manager.
func New(db *postgres.DB, b *broker.Broker) *Manager {
	return &Manager{db: db, broker: b, logger: logging.NewLogger("JobManager")}
}

// CreateJob inserts a new Job in the pending state, applying
// DefaultProcessingOptions for anything the caller left zero-valued.
func (m *Manager) CreateJob(ctx context.Context, j *domain.Job) (*domain.Job, error) {
	if j.Status == "" {
		j.Status = domain.JobPending
	}
	if j.ProcessingOptions.MaxRetries == 0 && j.ProcessingOptions.Priority == 0 {
		j.ProcessingOptions = domain.DefaultProcessingOptions()
	}
	if err := m.db.Jobs.Create(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

// StartJob transitions pending/paused -> running and kicks off discovery.
// A job already running is a harmless no-op — discovery's own idempotent
// guarantee applies at the job level too.
func (m *Manager) StartJob(ctx context.Context, jobID string) error {
	job, err := m.db.Jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == domain.JobRunning {
		return nil
	}
	if !domain.CanTransitionJob(job.Status, domain.JobRunning) {
		return errs.NewIllegalTransition(jobID, "job", string(job.Status), string(domain.JobRunning))
	}

	if err := m.db.Jobs.UpdateStatus(ctx, jobID, domain.JobRunning, true, false); err != nil {
		return err
	}
	return m.broker.EnqueueDiscovery(ctx, jobID, job.ProcessingOptions.Priority)
}

// PauseJob transitions running -> paused. In-flight extraction tasks keep
// running to completion. Pausing changes only the job's status: discovery,
// extraction retries and RetryDocument do not check it, so tasks already
// queued, and their retries, still run while the job is paused.
func (m *Manager) PauseJob(ctx context.Context, jobID string) error {
	return m.transitionJob(ctx, jobID, domain.JobPaused, false, false)
}

// ResumeJob transitions paused -> running without re-running discovery.
func (m *Manager) ResumeJob(ctx context.Context, jobID string) error {
	return m.transitionJob(ctx, jobID, domain.JobRunning, false, false)
}

// StopJob transitions a job to stopped, a terminal state an operator can
// reach from pending, running, or paused.
func (m *Manager) StopJob(ctx context.Context, jobID string) error {
	return m.transitionJob(ctx, jobID, domain.JobStopped, false, true)
}

func (m *Manager) transitionJob(ctx context.Context, jobID string, to domain.JobStatus, setStarted, setCompleted bool) error {
	job, err := m.db.Jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if !domain.CanTransitionJob(job.Status, to) {
		return errs.NewIllegalTransition(jobID, "job", string(job.Status), string(to))
	}
	return m.db.Jobs.UpdateStatus(ctx, jobID, to, setStarted, setCompleted)
}

// DeleteJob removes a job and every row that cascades from it, the delete
// order enforced in the schema rather than here.
func (m *Manager) DeleteJob(ctx context.Context, jobID string) error {
	return m.db.Jobs.Delete(ctx, jobID)
}

// RetryDocument re-queues one failed or needs_review document, enforcing
// the document's retry_count < max_retries ceiling.
func (m *Manager) RetryDocument(ctx context.Context, documentID string) error {
	doc, err := m.db.Documents.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if !domain.CanTransitionDocument(doc.Status, domain.DocQueued) {
		return errs.NewIllegalTransition(doc.JobID, "document", string(doc.Status), string(domain.DocQueued))
	}
	if doc.RetryCount >= doc.MaxRetries {
		return errs.NewIllegalTransition(doc.JobID, "document", string(doc.Status), string(domain.DocQueued))
	}
	if err := m.db.Documents.Retry(ctx, documentID); err != nil {
		return err
	}
	return m.broker.EnqueueExtraction(ctx, doc.JobID, documentID, doc.Priority, doc.MaxRetries)
}
