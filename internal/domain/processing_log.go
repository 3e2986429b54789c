package domain

import "time"

// LogLevel classifies a ProcessingLog entry.
type LogLevel string

const (
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// ProcessingLog is one operational-visibility event recorded against a
// Document as it moves through discovery, extraction, and reconciliation —
// the durable trail an operator reads instead of grepping worker stdout.
type ProcessingLog struct {
	ID         string    `db:"id"`
	DocumentID string    `db:"document_id"`
	Level      LogLevel  `db:"level"`
	Message    string    `db:"message"`
	CreatedAt  time.Time `db:"created_at"`
}
