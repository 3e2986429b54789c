// Package broker is the durable task queue fronting discovery and
// extraction work. It wires asynq's client/server/mux construction,
// RetryDelayFunc, and ErrorHandler into two logical task classes, each
// split into five priority sub-queues asynq serves in strict order, plus a
// periodic keepalive task.
package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/logging"
)

const (
	classDiscovery = "discovery"
	classExtract   = "extraction"
)

// Broker wraps one asynq Client (for enqueueing) and one asynq Server (for
// processing), parameterized over the task classes and priority tiers.
type Broker struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *logging.Logger
}

// Config parameterizes broker construction.
type Config struct {
	RedisURL    string
	Concurrency int // target concurrency per worker process (default 50)
}

// New builds a Broker. Queues are registered at weight (6-priority) per
// class/priority pair — priority 1 (highest) gets weight 5, priority 5
// (lowest) gets weight 1 — with StrictPriority so a process never starves
// a high-priority queue in favor of low-priority backlog.
func New(cfg Config) (*Broker, error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse broker Redis URL: %w", err)
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 50
	}

	queues := map[string]int{}
	for p := 1; p <= 5; p++ {
		weight := 6 - p
		queues[queueName(classDiscovery, p)] = weight
		queues[queueName(classExtract, p)] = weight
	}
	queues["broker"] = 1 // keepalive

	logger := logging.NewLogger("Broker")

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:    concurrency,
		Queues:         queues,
		StrictPriority: true,
		RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
			return BackoffDelay(n)
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("task failed", "type", task.Type(), "error", err.Error())
		}),
	})

	return &Broker{
		client: asynq.NewClient(redisOpt),
		server: server,
		mux:    asynq.NewServeMux(),
		logger: logger,
	}, nil
}

func queueName(class string, priority int) string {
	if priority < 1 || priority > 5 {
		priority = 3
	}
	return fmt.Sprintf("%s-p%d", class, priority)
}

// RegisterHandler wires a task type to its handler via asynq's ServeMux.
func (b *Broker) RegisterHandler(taskType TaskType, handler func(ctx context.Context, task *asynq.Task) error) {
	b.mux.HandleFunc(string(taskType), handler)
}

// EnqueueDiscovery schedules a discovery sweep for jobID at the job's
// priority.
func (b *Broker) EnqueueDiscovery(ctx context.Context, jobID string, priority int) error {
	task := asynq.NewTask(string(TaskDiscoverDocuments), marshalPayload(DiscoveryPayload{JobID: jobID}))
	_, err := b.client.EnqueueContext(ctx, task, asynq.Queue(queueName(classDiscovery, priority)))
	return err
}

// EnqueueExtraction schedules a first attempt at extracting one document.
// maxRetries bounds how many times asynq will redeliver the task after a
// retryable failure before giving up and calling the task's final failure
// path — the document's max_retries ceiling.
func (b *Broker) EnqueueExtraction(ctx context.Context, jobID, documentID string, priority, maxRetries int) error {
	task := asynq.NewTask(string(TaskExtractDocument), marshalPayload(ExtractionPayload{JobID: jobID, DocumentID: documentID}))
	_, err := b.client.EnqueueContext(ctx, task,
		asynq.Queue(queueName(classExtract, priority)),
		asynq.MaxRetry(maxRetries),
		asynq.Timeout(30*time.Minute), // hard deadline
	)
	return err
}

// EnqueueRetry re-schedules one document's extraction after a transient
// failure, delayed by the exponential-backoff-with-jitter policy keyed on
// the document's current retry_count.
func (b *Broker) EnqueueRetry(ctx context.Context, jobID, documentID string, priority, maxRetries, retryCount int) error {
	task := asynq.NewTask(string(TaskExtractDocument), marshalPayload(ExtractionPayload{JobID: jobID, DocumentID: documentID}))
	_, err := b.client.EnqueueContext(ctx, task,
		asynq.Queue(queueName(classExtract, priority)),
		asynq.MaxRetry(maxRetries),
		asynq.Timeout(30*time.Minute),
		asynq.ProcessIn(BackoffDelay(retryCount)),
	)
	return err
}

// EnqueueKeepalive schedules the periodic lightweight no-op DB round-trip
// that prevents a transaction-pooler session from idling out. Callers
// trigger this from a cron tick, not a user action.
func (b *Broker) EnqueueKeepalive(ctx context.Context) error {
	task := asynq.NewTask(string(TaskKeepalive), nil)
	_, err := b.client.EnqueueContext(ctx, task, asynq.Queue("broker"))
	return err
}

// Run starts the asynq server, blocking until ctx is cancelled or a fatal
// server error occurs.
func (b *Broker) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- b.server.Run(b.mux)
	}()

	select {
	case <-ctx.Done():
		b.server.Shutdown()
		return nil
	case err := <-errCh:
		return err
	}
}

// Close releases the enqueue client. Call after Run returns.
func (b *Broker) Close() error {
	return b.client.Close()
}
