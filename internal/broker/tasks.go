package broker

import "encoding/json"

// TaskType names one of the broker's durable task types. The broker runs
// two logical classes (discovery, extraction) plus a lightweight keepalive
// task that has no document/job semantics of its own.
type TaskType string

const (
	TaskDiscoverDocuments TaskType = "discovery:run"
	TaskExtractDocument   TaskType = "extraction:run"
	TaskKeepalive         TaskType = "broker:keepalive"
)

// DiscoveryPayload is an asynq task's payload for TaskDiscoverDocuments.
type DiscoveryPayload struct {
	JobID string `json:"job_id"`
}

// ExtractionPayload is an asynq task's payload for TaskExtractDocument.
type ExtractionPayload struct {
	JobID      string `json:"job_id"`
	DocumentID string `json:"document_id"`
}

func marshalPayload(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// Payloads here are plain {job_id, document_id} structs built by
		// this package's own callers — a marshal failure means a
		// programming error, not a runtime condition to recover from.
		panic("broker: failed to marshal task payload: " + err.Error())
	}
	return data
}
