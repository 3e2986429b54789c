package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/domain"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/errs"
)

// TranscriptRepo persists the one DocumentTranscript row per Document that
// internal/transcript.Build produces.
type TranscriptRepo struct {
	db *sqlx.DB
}

// UpsertTx writes or replaces a document's transcript inside tx, alongside
// the same transaction as its fields/terminal-status write.
func (r *TranscriptRepo) UpsertTx(ctx context.Context, tx *sqlx.Tx, t domain.DocumentTranscript) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	sectionIndex, err := json.Marshal(t.SectionIndex)
	if err != nil {
		return err
	}
	fieldLocations, err := json.Marshal(t.FieldLocations)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO document_transcripts (id, document_id, text, section_index, field_locations, total_pages, total_sections)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (document_id) DO UPDATE SET
			text = EXCLUDED.text,
			section_index = EXCLUDED.section_index,
			field_locations = EXCLUDED.field_locations,
			total_pages = EXCLUDED.total_pages,
			total_sections = EXCLUDED.total_sections
	`, t.ID, t.DocumentID, t.Text, sectionIndex, fieldLocations, 0, 0)
	if err != nil {
		return errs.NewTransient("", "failed to upsert document transcript", err)
	}
	return nil
}

// GetByDocument loads a document's transcript, if one has been generated.
func (r *TranscriptRepo) GetByDocument(ctx context.Context, documentID string) (*domain.DocumentTranscript, error) {
	var row struct {
		ID             string `db:"id"`
		DocumentID     string `db:"document_id"`
		Text           string `db:"text"`
		SectionIndex   []byte `db:"section_index"`
		FieldLocations []byte `db:"field_locations"`
	}
	err := r.db.GetContext(ctx, &row, `SELECT id, document_id, text, section_index, field_locations
		FROM document_transcripts WHERE document_id = $1`, documentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewTransient("", "failed to load document transcript", err)
	}

	var sectionIndex map[string]int
	if err := json.Unmarshal(row.SectionIndex, &sectionIndex); err != nil {
		return nil, err
	}
	var fieldLocations map[string]string
	if err := json.Unmarshal(row.FieldLocations, &fieldLocations); err != nil {
		return nil, err
	}

	return &domain.DocumentTranscript{
		ID:             row.ID,
		DocumentID:     row.DocumentID,
		Text:           row.Text,
		SectionIndex:   sectionIndex,
		FieldLocations: fieldLocations,
	}, nil
}
