// Package postgres is the single source of truth for every core entity:
// Job, Document, ExtractedField, DocumentTranscript, ReviewQueueItem,
// MappingTemplate. It wraps database/sql + lib/pq with sqlx for
// struct-scanning convenience across the several repositories the pipeline
// needs, and runs its schema through embedded goose migrations.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the repository set behind one pooled connection.
type DB struct {
	conn *sqlx.DB

	Jobs        *JobRepo
	Documents   *DocumentRepo
	Fields      *FieldRepo
	Transcripts *TranscriptRepo
	Reviews     *ReviewRepo
	Templates   *TemplateRepo
	ProcessingLogs *ProcessingLogRepo
}

// Open connects to databaseURL, tunes the pool for a transaction-pooler
// deployment (PgBouncer-style: short-lived connections, no server-side
// prepared-statement caching — every query here goes through sqlx's
// one-shot Exec/Query path rather than db.Prepare, which such poolers
// require), and runs pending migrations.
func Open(ctx context.Context, databaseURL string) (*DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	sqlDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(2 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn := sqlx.NewDb(sqlDB, "postgres")

	if err := runMigrations(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db := &DB{conn: conn}
	db.Jobs = &JobRepo{db: conn}
	db.Documents = &DocumentRepo{db: conn}
	db.Fields = &FieldRepo{db: conn}
	db.Transcripts = &TranscriptRepo{db: conn}
	db.Reviews = &ReviewRepo{db: conn}
	db.Templates = &TemplateRepo{db: conn}
	db.ProcessingLogs = &ProcessingLogRepo{db: conn}

	return db, nil
}

func runMigrations(sqlDB *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(sqlDB, "migrations")
}

// Ping checks connectivity, used by the broker's keepalive task to keep a
// transaction-pooler session from idling out.
func (d *DB) Ping(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	return d.conn.Close()
}

// WithTx runs fn inside a single transaction, committing on success and
// rolling back on error or panic. Used wherever a write must be atomic —
// most notably the extraction worker's bulk field insert + terminal
// status transition.
func (d *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := d.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
