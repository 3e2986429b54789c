// Package discovery turns a Job's source_config into the set of Document
// rows extraction will process: list what the gateway sees, insert it
// once, and hand every document to the broker at the job's priority,
// across all three storagegw source types.
package discovery

import (
	"context"
	"encoding/json"
	"mime"
	"path/filepath"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/broker"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/domain"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/errs"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/logging"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/postgres"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/storagegw"
)

// Worker runs one job's discovery sweep.
type Worker struct {
	db     *postgres.DB
	broker *broker.Broker
	logger *logging.Logger
}

// New builds a discovery Worker.
func New(db *postgres.DB, b *broker.Broker) *Worker {
	return &Worker{db: db, broker: b, logger: logging.NewLogger("DiscoveryWorker")}
}

// HandleTask adapts Process to the broker's task-handler shape.
func (w *Worker) HandleTask(ctx context.Context, task *asynq.Task) error {
	var payload broker.DiscoveryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return errs.NewPermanent("", "failed to decode discovery task payload", err)
	}
	return w.Process(ctx, payload.JobID)
}

// Process runs discovery for jobID: if documents already exist (a prior
// sweep already ran, or this is a redelivered task), discovery is skipped
// entirely — discovery is idempotent per job.
func (w *Worker) Process(ctx context.Context, jobID string) error {
	job, err := w.db.Jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}

	existing, err := w.db.Documents.CountExisting(ctx, jobID)
	if err != nil {
		return err
	}
	if existing > 0 {
		w.logger.Info("discovery skipped, documents already present", "job_id", jobID, "existing", existing)
		return nil
	}

	gw, err := storagegw.New(job.SourceConfig)
	if err != nil {
		return err
	}

	objects, err := gw.Enumerate(ctx, 0)
	if err != nil {
		return err
	}

	docs := make([]*domain.Document, 0, len(objects))
	for _, obj := range objects {
		docs = append(docs, &domain.Document{
			JobID:        jobID,
			SourcePath:   obj.Path,
			FileName:     obj.Name,
			Size:         obj.SizeBytes,
			MimeType:     guessMimeType(obj.Name),
			DocumentType: job.ProcessingOptions.DocumentType,
			Status:       domain.DocPending,
			Priority:     job.ProcessingOptions.Priority,
			MaxRetries:   job.ProcessingOptions.MaxRetries,
		})
	}

	if len(docs) == 0 {
		w.logger.Info("discovery found no documents", "job_id", jobID)
		if err := w.db.Jobs.SetTotalDocuments(ctx, jobID, 0); err != nil {
			return err
		}
		return w.db.Jobs.UpdateStatus(ctx, jobID, domain.JobCompleted, false, true)
	}

	if err := w.db.Documents.BulkInsert(ctx, docs); err != nil {
		return err
	}
	if err := w.db.Jobs.SetTotalDocuments(ctx, jobID, len(docs)); err != nil {
		return err
	}

	for _, d := range docs {
		if err := w.db.Documents.MarkQueued(ctx, d.ID); err != nil {
			w.logger.Error("failed to mark document queued", "document_id", d.ID, "error", err.Error())
			continue
		}
		if err := w.broker.EnqueueExtraction(ctx, jobID, d.ID, d.Priority, d.MaxRetries); err != nil {
			w.logger.Error("failed to enqueue extraction task", "document_id", d.ID, "error", err.Error())
		}
	}

	w.logger.Info("discovery complete", "job_id", jobID, "documents", len(docs))
	return nil
}

// guessMimeType derives a MIME type from a file's extension, falling back
// to a generic binary stream for anything unrecognized — extraction only
// needs this for display, not for deciding how to rasterize a document.
func guessMimeType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tiff", ".tif":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}
