package jobmanager

import (
	"context"
	"time"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/domain"
)

// Reconciler periodically sweeps stuck documents back to queued and
// advances running jobs to completed once every document has reached a
// terminal state. It is driven by an external cron schedule
// (cmd/worker/main.go), not its own timer, so its cadence lives in one
// place alongside the rest of the worker's scheduled tasks.
type Reconciler struct {
	mgr            *Manager
	stallThreshold time.Duration
}

// NewReconciler builds a Reconciler. stallThreshold is how long a document
// may sit in `processing` with no terminal transition before its lease is
// considered abandoned and reverted to `queued`.
func NewReconciler(mgr *Manager, stallThreshold time.Duration) *Reconciler {
	return &Reconciler{mgr: mgr, stallThreshold: stallThreshold}
}

// Run executes one reconciliation pass: revert stuck documents, backfill
// missing review-queue items, then check every running job for
// convergence to completed.
func (r *Reconciler) Run(ctx context.Context) error {
	reverted, err := r.mgr.db.Documents.ReconcileStuck(ctx, r.stallThreshold)
	if err != nil {
		return err
	}
	if len(reverted) > 0 {
		r.mgr.logger.Info("reconciler reverted stuck documents", "count", len(reverted))
		for _, documentID := range reverted {
			_ = r.mgr.db.ProcessingLogs.Insert(ctx, documentID, domain.LogWarn,
				"processing lease abandoned, reverted to queued by reconciler")
		}
	}

	if _, err := r.mgr.db.Reviews.BackfillMissing(ctx); err != nil {
		r.mgr.logger.Error("reconciler backfill failed", "error", err.Error())
	}

	jobIDs, err := r.mgr.db.Jobs.RunningJobIDs(ctx)
	if err != nil {
		return err
	}
	for _, jobID := range jobIDs {
		if err := r.converge(ctx, jobID); err != nil {
			r.mgr.logger.Error("reconciler failed to converge job", "job_id", jobID, "error", err.Error())
		}
	}
	return nil
}

// converge flips a running job to completed once every discovered document
// has reached a terminal state (completed, failed, or needs_review) and
// discovery has recorded a non-zero total — a job with total_documents==0
// is still awaiting its discovery sweep and must not be closed out early.
func (r *Reconciler) converge(ctx context.Context, jobID string) error {
	completed, failed, needsReview, total, err := r.mgr.db.Jobs.TerminalDocumentCounts(ctx, jobID)
	if err != nil {
		return err
	}
	if total == 0 {
		return nil
	}
	job, err := r.mgr.db.Jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.TotalDocuments == 0 || job.TotalDocuments != total {
		// Discovery hasn't finished inserting, or is still running.
		return nil
	}
	if completed+failed+needsReview < total {
		return nil
	}
	return r.mgr.db.Jobs.UpdateStatus(ctx, jobID, domain.JobCompleted, false, true)
}
