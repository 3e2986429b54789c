// Package extraction is the document extraction pipeline: fetch one
// document's bytes, rasterize its pages, batch them to the vision-LLM,
// flatten the model's hierarchical response into persisted fields and a
// transcript, and drive the document through its terminal state. The
// pipeline is template-free and page-batched: fetch -> rasterize ->
// batch-extract -> persist -> publish.
package extraction

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/broker"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/domain"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/errs"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/eventbus"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/logging"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/postgres"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/promptbuilder"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/rasterizer"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/storagegw"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/transcript"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/visionllm"
)

const bankStatementType = "bank_statement"

// Config parameterizes one Worker.
type Config struct {
	WorkerID              string
	BatchSize             int     // pages per vision-LLM call
	ReviewThreshold       float64 // confidence floor below which a field needs human review
	MaxRasterFailureRatio float64 // abort the document if more than this fraction of pages fail to rasterize
}

// Worker runs the extraction pipeline for one document at a time. A single
// Worker is shared by every goroutine asynq's server hands extraction tasks
// to — it holds no per-document state.
type Worker struct {
	db     *postgres.DB
	bus    *eventbus.Bus
	raster *rasterizer.Pool
	llm    visionllm.Client
	cfg    Config
	logger *logging.Logger
}

// New builds an extraction Worker.
func New(db *postgres.DB, bus *eventbus.Bus, raster *rasterizer.Pool, llm visionllm.Client, cfg Config) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.ReviewThreshold <= 0 {
		cfg.ReviewThreshold = 0.75
	}
	if cfg.MaxRasterFailureRatio <= 0 {
		cfg.MaxRasterFailureRatio = 0.5
	}
	return &Worker{db: db, bus: bus, raster: raster, llm: llm, cfg: cfg, logger: logging.NewLogger("ExtractionWorker")}
}

// HandleTask adapts Process to the broker's task-handler shape, decoding
// the asynq payload the broker enqueued.
func (w *Worker) HandleTask(ctx context.Context, task *asynq.Task) error {
	var payload broker.ExtractionPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return errs.NewPermanent("", "failed to decode extraction task payload", err)
	}
	return w.Process(ctx, payload.JobID, payload.DocumentID)
}

// Process runs the full extraction pipeline for one document. A nil return
// with no state change means the task was a harmless redelivery (the
// document was already claimed or already terminal); a returned error
// signals asynq to retry per its configured backoff.
func (w *Worker) Process(ctx context.Context, jobID, documentID string) error {
	doc, err := w.db.Documents.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.Status.Terminal() {
		return nil
	}

	job, err := w.db.Jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}

	claimed, err := w.db.Documents.ClaimForProcessing(ctx, documentID, w.cfg.WorkerID)
	if err != nil {
		return err
	}
	if !claimed {
		// Another delivery of the same task already won the lease, or the
		// document moved past queued before this one landed.
		return nil
	}

	started := time.Now()

	gw, err := storagegw.New(job.SourceConfig)
	if err != nil {
		return w.terminalFail(ctx, jobID, doc, err)
	}

	rc, err := gw.Fetch(ctx, doc.SourcePath)
	if err != nil {
		return w.handle(ctx, jobID, doc, err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return w.handle(ctx, jobID, doc, errs.NewTransient(jobID, "failed to read document bytes", err))
	}

	pageCount, err := rasterizer.PageCount(data)
	if err != nil {
		return w.handle(ctx, jobID, doc, err)
	}

	w.bus.PublishDocumentStarted(ctx, jobID, documentID, doc.FileName, pageCount)
	_ = w.db.Documents.UpdateProgress(ctx, documentID, "rasterizing", 0, pageCount)
	_ = w.db.ProcessingLogs.Insert(ctx, documentID, domain.LogInfo,
		fmt.Sprintf("extraction started: %d pages", pageCount))

	pages := w.raster.RenderAll(ctx, data, pageCount)
	if err := rasterizer.Validate(pages, w.cfg.MaxRasterFailureRatio); err != nil {
		return w.handle(ctx, jobID, doc, errs.NewPermanent(jobID, err.Error(), nil))
	}

	_ = w.db.Documents.UpdateProgress(ctx, documentID, "extracting", 0, pageCount)

	batches := formBatches(pages, w.cfg.BatchSize)
	isBankStatement := doc.DocumentType == bankStatementType

	results, tokenUsage, err := w.runBatches(ctx, doc, batches, isBankStatement)
	if err != nil {
		return w.handle(ctx, jobID, doc, err)
	}

	pageExtractions := make([]transcript.PageExtraction, 0, len(results))
	var fields []domain.ExtractedField
	pageFieldOrder := map[int]int{}
	pagesProcessed := 0

	for _, res := range results {
		pagesProcessed += len(res.batch.images)
		pageExtractions = append(pageExtractions, transcript.PageExtraction{PageNumber: res.batch.startPage, Root: res.root})
		for _, leaf := range orderedLeaves(res.root) {
			order := pageFieldOrder[res.batch.startPage]
			pageFieldOrder[res.batch.startPage] = order + 1
			fo := order

			sourceLocation := fmt.Sprintf("Page %d", res.batch.startPage)
			if leaf.section != "" {
				sourceLocation = fmt.Sprintf("Page %d, Section: %s", res.batch.startPage, leaf.section)
			}

			fields = append(fields, domain.ExtractedField{
				DocumentID:        documentID,
				FieldPath:         leaf.path,
				FieldLabel:        transcript.TitleCase(lastPathSegment(leaf.path)),
				FieldType:         leaf.node.FieldType,
				GroupName:         leaf.section,
				SectionName:       leaf.section,
				FieldOrder:        &fo,
				Page:              res.batch.startPage,
				Value:             leaf.node.Value,
				Confidence:        leaf.node.Confidence,
				BoundingBox:       leaf.node.BoundingBox,
				ExtractionMethod:  domain.ExtractionVisionLLM,
				ModelVersion:      res.modelUsed,
				SourceLocation:    sourceLocation,
				ExtractionContext: extractionContext(leaf.node.Value),
				ValidationStatus:  domain.ValidationPending,
				NeedsManualReview: leaf.node.Confidence < w.cfg.ReviewThreshold,
			})
		}
	}

	_ = w.db.Documents.UpdateProgress(ctx, documentID, "persisting", pagesProcessed, pageCount)

	needsReview := 0
	var confidenceSum float64
	for i := range fields {
		if fields[i].NeedsManualReview {
			needsReview++
		}
		confidenceSum += fields[i].Confidence
	}
	avgConfidence := 0.0
	if len(fields) > 0 {
		avgConfidence = confidenceSum / float64(len(fields))
	}

	rendered := transcript.Build(doc.FileName, pageExtractions, started)
	docTranscript := rendered.ToDomain("", documentID, started)

	status := domain.DocCompleted
	if needsReview > 0 {
		status = domain.DocNeedsReview
	}

	telemetry := postgres.CompleteTelemetry{
		ExtractionTimeMS:     time.Since(started).Milliseconds(),
		TokenUsage:           tokenUsage,
		TotalFieldsExtracted: len(fields),
		FieldsNeedingReview:  needsReview,
		AverageConfidence:    avgConfidence,
	}

	if txErr := w.persist(ctx, jobID, documentID, fields, docTranscript, status, telemetry); txErr != nil {
		return w.handle(ctx, jobID, doc, txErr)
	}

	if status == domain.DocNeedsReview {
		_ = w.db.Reviews.CreateIfAbsent(ctx, documentID, "low_confidence_fields", doc.Priority, "", "")
		_ = w.db.Jobs.IncrementCounters(ctx, jobID, 0, 0, 1)
	} else {
		_ = w.db.Jobs.IncrementCounters(ctx, jobID, 1, 0, 0)
	}

	_ = w.db.ProcessingLogs.Insert(ctx, documentID, domain.LogInfo,
		fmt.Sprintf("extraction completed: %d fields, %d needing review", len(fields), needsReview))
	w.bus.PublishDocumentCompleted(ctx, jobID, documentID, doc.FileName, len(fields), telemetry.ExtractionTimeMS)
	return nil
}

// persist commits the bulk field insert, transcript upsert, and terminal
// status transition as one atomic unit — at-most-once persistence.
func (w *Worker) persist(ctx context.Context, jobID, documentID string, fields []domain.ExtractedField, docTranscript domain.DocumentTranscript, status domain.DocumentStatus, telemetry postgres.CompleteTelemetry) error {
	return w.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := w.db.Fields.BulkInsertTx(ctx, tx, jobID, fields); err != nil {
			return err
		}
		if err := w.db.Transcripts.UpsertTx(ctx, tx, docTranscript); err != nil {
			return err
		}
		return w.db.Documents.Complete(ctx, tx, documentID, status, telemetry, nil, nil)
	})
}

// handle classifies err and either lets asynq retry (transient, under the
// document's retry ceiling), or drives the document to its failed terminal
// state (permanent, or transient past the ceiling).
func (w *Worker) handle(ctx context.Context, jobID string, doc *domain.Document, err error) error {
	e, ok := err.(*errs.Error)
	if !ok {
		e = errs.NewTransient(jobID, err.Error(), err)
	}

	if e.Kind == errs.Transient {
		requeued, rqErr := w.db.Documents.RequeueAfterTransientFailure(ctx, doc.ID, e.Message, string(e.Kind))
		if rqErr != nil {
			w.logger.Error("failed to requeue document", "document_id", doc.ID, "error", rqErr.Error())
		}
		if requeued {
			return e
		}
		// retry_count has reached max_retries: fall through to terminal fail
	}

	return w.terminalFail(ctx, jobID, doc, e)
}

func (w *Worker) terminalFail(ctx context.Context, jobID string, doc *domain.Document, err error) error {
	e, ok := err.(*errs.Error)
	msg := err.Error()
	kind := string(errs.Permanent)
	if ok {
		msg = e.Message
		kind = string(e.Kind)
	}
	if failErr := w.db.Documents.Fail(ctx, doc.ID, msg, kind); failErr != nil {
		w.logger.Error("failed to mark document failed", "document_id", doc.ID, "error", failErr.Error())
	}
	_ = w.db.ProcessingLogs.Insert(ctx, doc.ID, domain.LogError, fmt.Sprintf("extraction failed: %s", msg))
	_ = w.db.Reviews.CreateIfAbsent(ctx, doc.ID, "extraction_failed", doc.Priority, msg, kind)
	_ = w.db.Jobs.IncrementCounters(ctx, jobID, 0, 1, 0)
	w.bus.PublishDocumentFailed(ctx, jobID, doc.ID, doc.FileName, msg)
	return nil
}

// lastPathSegment returns the trailing dotted-path component of a field
// path ("borrower.co_borrower.name" -> "name"), used to derive a human
// label for a field nested arbitrarily deep under its section.
func lastPathSegment(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// extractionContext renders value as the short preview text stored
// alongside a field, truncated to domain.MaxExtractionContextLen so it
// always satisfies the persisted column's length invariant.
func extractionContext(value interface{}) string {
	if value == nil {
		return ""
	}
	s := fmt.Sprintf("%v", value)
	if len(s) > domain.MaxExtractionContextLen {
		return s[:domain.MaxExtractionContextLen]
	}
	return s
}

// pageBatch groups successfully-rasterized pages, in page order, dispatched
// to the vision LLM as a single call. Failed pages are skipped, so the page
// numbers within one batch need not be consecutive.
type pageBatch struct {
	startPage int
	images    []visionllm.PageImage
}

// formBatches groups rasterized pages into chunks of at most size pages,
// skipping pages that failed to rasterize — a failed page is recorded as a
// gap in pages_processed, never sent to the model.
func formBatches(pages []rasterizer.PageResult, size int) []pageBatch {
	var batches []pageBatch
	var current pageBatch
	for _, p := range pages {
		if p.Err != nil {
			continue
		}
		if len(current.images) == 0 {
			current.startPage = p.Page
		}
		current.images = append(current.images, visionllm.PageImage{
			Page:      p.Page,
			PNGBase64: base64.StdEncoding.EncodeToString(p.Image),
		})
		if len(current.images) >= size {
			batches = append(batches, current)
			current = pageBatch{}
		}
	}
	if len(current.images) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// batchOutcome is one batch's parsed extraction result.
type batchOutcome struct {
	batch     pageBatch
	root      domain.Node
	modelUsed string
}

// runBatches dispatches every batch to the vision LLM. Bank-statement
// documents gate the first batch as a sequential call so its table-header
// discovery (promptbuilder.BankStatementContext) can be threaded into every
// later batch's prompt; every other document type, and every later
// bank-statement batch, runs fully concurrently.
func (w *Worker) runBatches(ctx context.Context, doc *domain.Document, batches []pageBatch, isBankStatement bool) ([]batchOutcome, domain.TokenUsage, error) {
	results := make([]batchOutcome, len(batches))
	var usage domain.TokenUsage
	var mu sync.Mutex

	if len(batches) == 0 {
		return results, usage, nil
	}

	dispatch := func(dctx context.Context, idx int, bsCtx promptbuilder.BankStatementContext, useBankStatement bool) (string, error) {
		var prompt string
		var format promptbuilder.ResponseFormat
		if useBankStatement {
			prompt, format = promptbuilder.BankStatementExtraction(bsCtx)
		} else {
			prompt, format = promptbuilder.GenericExtraction()
		}
		res, err := w.llm.Extract(dctx, prompt, format, batches[idx].images)
		if err != nil {
			return "", err
		}
		jsonText := res.JSONText
		if useBankStatement && !bsCtx.IsFirstPage && len(bsCtx.TableHeaders) > 0 {
			jsonText = reconcileTransactionJSON(jsonText, bsCtx.TableHeaders)
		}
		root, derr := decodeNode(jsonText)
		if derr != nil {
			return "", errs.NewPermanent(doc.JobID, "vision-llm returned malformed JSON", derr)
		}

		mu.Lock()
		results[idx] = batchOutcome{batch: batches[idx], root: root, modelUsed: res.ModelUsed}
		usage.TotalTokens += res.TokensUsed
		mu.Unlock()

		return jsonText, nil
	}

	rest := batches
	startIdx := 0
	var tableHeaders []string

	if isBankStatement {
		firstJSON, err := dispatch(ctx, 0, promptbuilder.BankStatementContext{IsFirstPage: true, PageNumber: batches[0].startPage}, true)
		if err != nil {
			return nil, usage, err
		}
		tableHeaders = extractTableHeaders(firstJSON)
		rest = batches[1:]
		startIdx = 1
	}

	// A bank-statement page 1 that never emitted _table_headers leaves later
	// batches with nothing to carry forward; per spec.md §4.D, those batches
	// fall back to the generic extraction task rather than asking the model
	// to match a header list that doesn't exist.
	useBankStatementForRest := isBankStatement && len(tableHeaders) > 0

	g, gctx := errgroup.WithContext(ctx)
	for i := range rest {
		idx := startIdx + i
		batchStartPage := batches[idx].startPage
		g.Go(func() error {
			_, err := dispatch(gctx, idx, promptbuilder.BankStatementContext{
				IsFirstPage:  false,
				TableHeaders: tableHeaders,
				PageNumber:   batchStartPage,
			}, useBankStatementForRest)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, usage, err
	}

	return results, usage, nil
}
