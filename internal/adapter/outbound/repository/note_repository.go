package repository

import (
	"context"
	"errors"
	"time"

	domainerrors "medinotes/internal/domain/errors/domain"
	"medinotes/internal/domain/valueobject"
	"medinotes/internal/port/outbound"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQLNoteRepository implements outbound.NoteRepository over the
// notes and generated_notes tables.
type PostgreSQLNoteRepository struct {
	pool *pgxpool.Pool
}

// NewPostgreSQLNoteRepository creates a new note repository.
func NewPostgreSQLNoteRepository(pool *pgxpool.Pool) *PostgreSQLNoteRepository {
	return &PostgreSQLNoteRepository{pool: pool}
}

// FindByID returns the raw note or domain.ErrNoteNotFound.
func (r *PostgreSQLNoteRepository) FindByID(ctx context.Context, noteID string) (*outbound.Note, error) {
	query := `
		SELECT id, patient_id, text, created_at
		FROM notes
		WHERE id = $1 AND deleted_at IS NULL`

	var note outbound.Note
	var patientID *string
	err := r.pool.QueryRow(ctx, query, noteID).Scan(&note.ID, &patientID, &note.Text, &note.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrNoteNotFound
		}
		return nil, WrapError(err, "find note")
	}
	if patientID != nil {
		note.PatientID = *patientID
	}
	return &note, nil
}

// SaveGenerated upserts generated variants, one row per note and type.
func (r *PostgreSQLNoteRepository) SaveGenerated(ctx context.Context, notes []outbound.GeneratedNote) error {
	if len(notes) == 0 {
		return nil
	}

	query := `
		INSERT INTO generated_notes (note_id, note_type, content, model, generated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (note_id, note_type)
		DO UPDATE SET content = EXCLUDED.content,
		              model = EXCLUDED.model,
		              generated_at = EXCLUDED.generated_at`

	batch := &pgx.Batch{}
	for _, note := range notes {
		generatedAt := note.GeneratedAt
		if generatedAt.IsZero() {
			generatedAt = time.Now().UTC()
		}
		batch.Queue(query, note.NoteID, string(note.NoteType), note.Content, note.Model, generatedAt)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range notes {
		if _, err := results.Exec(); err != nil {
			return WrapError(err, "save generated notes")
		}
	}
	return nil
}

// FindGenerated returns generated variants for a note in generation order.
func (r *PostgreSQLNoteRepository) FindGenerated(ctx context.Context, noteID string) ([]outbound.GeneratedNote, error) {
	query := `
		SELECT note_id, note_type, content, model, generated_at
		FROM generated_notes
		WHERE note_id = $1
		ORDER BY generated_at ASC`

	rows, err := r.pool.Query(ctx, query, noteID)
	if err != nil {
		return nil, WrapError(err, "find generated notes")
	}
	defer rows.Close()

	notes := make([]outbound.GeneratedNote, 0)
	for rows.Next() {
		var note outbound.GeneratedNote
		var noteType string
		if err := rows.Scan(&note.NoteID, &noteType, &note.Content, &note.Model, &note.GeneratedAt); err != nil {
			return nil, WrapError(err, "scan generated note")
		}
		note.NoteType = valueobject.NoteType(noteType)
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(err, "iterate generated notes")
	}
	return notes, nil
}
