package valueobject

import "fmt"

// NoteType identifies a structured note variant generated from a raw
// clinical note.
type NoteType string

// Note type constants.
const (
	NoteTypeSOAP            NoteType = "soap_note"
	NoteTypeProgress        NoteType = "progress_note"
	NoteTypeConsultation    NoteType = "consultation_note"
	NoteTypeFollowUp        NoteType = "followup_visit"
	NoteTypeDayByDaySummary NoteType = "day_by_day_summary"
)

var validNoteTypes = map[NoteType]bool{
	NoteTypeSOAP:            true,
	NoteTypeProgress:        true,
	NoteTypeConsultation:    true,
	NoteTypeFollowUp:        true,
	NoteTypeDayByDaySummary: true,
}

// NewNoteType creates a new NoteType with validation.
func NewNoteType(noteType string) (NoteType, error) {
	n := NoteType(noteType)
	if !validNoteTypes[n] {
		return "", fmt.Errorf("invalid note type: %s", noteType)
	}
	return n, nil
}

// String returns the string representation of the note type.
func (n NoteType) String() string {
	return string(n)
}

// AllNoteTypes returns all note variants in generation order.
func AllNoteTypes() []NoteType {
	return []NoteType{
		NoteTypeSOAP,
		NoteTypeProgress,
		NoteTypeConsultation,
		NoteTypeFollowUp,
		NoteTypeDayByDaySummary,
	}
}
