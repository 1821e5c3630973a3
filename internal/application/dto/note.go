package dto

import "time"

// GeneratedNoteResponse is one structured note variant produced from a raw
// clinical note.
type GeneratedNoteResponse struct {
	NoteType    string    `json:"note_type"`
	Content     string    `json:"content"`
	GeneratedAt time.Time `json:"generated_at"`
}

// GeneratedNotesResponse lists a note's generated variants in generation
// order.
type GeneratedNotesResponse struct {
	NoteID string                  `json:"note_id"`
	Notes  []GeneratedNoteResponse `json:"notes"`
}

// ValidateNoteRequest asks for structural validation of one generated
// variant against its source text.
type ValidateNoteRequest struct {
	SourceNote      string `json:"source_note"`
	GeneratedOutput string `json:"generated_output"`
	NoteType        string `json:"note_type"`
}

// ValidationReportResponse is the outcome of validating one generated
// variant.
type ValidationReportResponse struct {
	NoteType string   `json:"note_type"`
	Decision string   `json:"decision"`
	Passed   bool     `json:"passed"`
	Score    float64  `json:"score"`
	Issues   []string `json:"issues"`
}
