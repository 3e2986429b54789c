// Package eventbus is the per-job pub/sub channel backing live progress
// updates. It publishes a typed event set over the same go-redis/v9
// client the broker's Redis instance already runs.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/logging"
)

// EventType enumerates every message shape a job's channel carries.
type EventType string

const (
	DocumentStarted   EventType = "document_started"
	FieldExtracted    EventType = "field_extracted"
	DocumentCompleted EventType = "document_completed"
	DocumentFailed    EventType = "document_failed"
	Connected         EventType = "connected"
)

// Event is the JSON envelope published on a job's channel. Payload carries
// whatever fields are specific to Type (see the New* constructors below).
type Event struct {
	Type      EventType              `json:"type"`
	JobID     string                 `json:"job_id"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}

// Bus publishes and subscribes to per-job channels over Redis pub/sub.
// Messages are best-effort: if no subscriber is attached when Publish
// runs, the event is simply dropped — there is no durability layer
// backing this channel.
type Bus struct {
	client *redis.Client
	logger *logging.Logger
}

// New connects to redisURL (the same Redis instance the broker's queue
// runs against by default, per internal/config.Config.EventBusURL).
func New(redisURL string) (*Bus, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse event bus redis URL: %w", err)
	}
	return &Bus{
		client: redis.NewClient(opt),
		logger: logging.NewLogger("EventBus"),
	}, nil
}

func channelName(jobID string) string {
	return fmt.Sprintf("job:%s:updates", jobID)
}

// publish serializes evt and publishes it on its job's channel. Errors are
// logged, not returned upward as fatal — a dropped event must never fail
// the extraction step that produced it.
func (b *Bus) publish(ctx context.Context, jobID string, evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		b.logger.Error("failed to marshal event", "job_id", jobID, "type", evt.Type, "error", err.Error())
		return
	}
	if err := b.client.Publish(ctx, channelName(jobID), data).Err(); err != nil {
		b.logger.Warn("failed to publish event", "job_id", jobID, "type", evt.Type, "error", err.Error())
	}
}

// PublishDocumentStarted announces that a document's extraction has begun.
func (b *Bus) PublishDocumentStarted(ctx context.Context, jobID, documentID, documentName string, totalPages int) {
	b.publish(ctx, jobID, Event{
		Type: DocumentStarted, JobID: jobID, Timestamp: time.Now(),
		Payload: map[string]interface{}{
			"document_id": documentID, "document_name": documentName, "total_pages": totalPages,
		},
	})
}

// PublishFieldExtracted announces one field's extraction, used to drive a
// live preview as a document's pages are processed.
func (b *Bus) PublishFieldExtracted(ctx context.Context, jobID, fieldName string, fieldValue interface{}, confidence float64, page int) {
	b.publish(ctx, jobID, Event{
		Type: FieldExtracted, JobID: jobID, Timestamp: time.Now(),
		Payload: map[string]interface{}{
			"field_name": fieldName, "field_value": fieldValue, "confidence": confidence, "page": page,
		},
	})
}

// PublishDocumentCompleted announces a document reaching a completed (or
// needs_review) terminal state.
func (b *Bus) PublishDocumentCompleted(ctx context.Context, jobID, documentID, documentName string, fieldsExtracted int, processingTimeMS int64) {
	b.publish(ctx, jobID, Event{
		Type: DocumentCompleted, JobID: jobID, Timestamp: time.Now(),
		Payload: map[string]interface{}{
			"document_id": documentID, "document_name": documentName,
			"fields_extracted": fieldsExtracted, "processing_time_ms": processingTimeMS,
		},
	})
}

// PublishDocumentFailed announces a document reaching the failed terminal
// state.
func (b *Bus) PublishDocumentFailed(ctx context.Context, jobID, documentID, documentName, errMsg string) {
	b.publish(ctx, jobID, Event{
		Type: DocumentFailed, JobID: jobID, Timestamp: time.Now(),
		Payload: map[string]interface{}{
			"document_id": documentID, "document_name": documentName, "error": errMsg,
		},
	})
}

// Subscribe attaches to a job's channel; the caller (a WebSocket gateway)
// forwards messages to its socket and must call Close on the returned
// subscription when the client disconnects.
func (b *Bus) Subscribe(ctx context.Context, jobID string) *redis.PubSub {
	return b.client.Subscribe(ctx, channelName(jobID))
}

// Close releases the underlying Redis client.
func (b *Bus) Close() error {
	return b.client.Close()
}
