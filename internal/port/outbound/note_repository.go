package outbound

import (
	"context"
	"time"

	"medinotes/internal/domain/valueobject"
)

// Note is a raw clinical note as stored by the system of record.
type Note struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patient_id,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// GeneratedNote is one structured variant produced from a raw note.
type GeneratedNote struct {
	NoteID      string               `json:"note_id"`
	NoteType    valueobject.NoteType `json:"note_type"`
	Content     string               `json:"content"`
	Model       string               `json:"model,omitempty"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// NoteRepository provides access to raw notes and stores generated variants.
type NoteRepository interface {
	// FindByID returns the note or domain.ErrNoteNotFound.
	FindByID(ctx context.Context, noteID string) (*Note, error)

	// SaveGenerated stores the generated variants for a note, replacing any
	// earlier generation for the same note and type.
	SaveGenerated(ctx context.Context, notes []GeneratedNote) error

	// FindGenerated returns previously generated variants for a note,
	// in generation order.
	FindGenerated(ctx context.Context, noteID string) ([]GeneratedNote, error)
}
