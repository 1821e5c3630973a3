package service

import (
	"fmt"
	"regexp"
	"strings"

	"medinotes/internal/domain/valueobject"
)

// Validation decisions, strictest last.
const (
	DecisionApprove = "APPROVE"
	DecisionReview  = "REVIEW"
	DecisionReject  = "REJECT"
)

// ValidationReport is the outcome of checking one generated variant
// against its source note.
type ValidationReport struct {
	NoteType string
	Decision string
	Passed   bool
	Score    float64
	Issues   []string
}

// NoteValidator checks generated note variants for template completeness
// and fact consistency with the source text. The checks are structural;
// deeper semantic scoring belongs to an offline review pipeline.
type NoteValidator struct {
	sections map[valueobject.NoteType][]string
}

// NewNoteValidator creates a validator with the required-section map for
// every known variant.
func NewNoteValidator() *NoteValidator {
	return &NoteValidator{
		sections: map[valueobject.NoteType][]string{
			valueobject.NoteTypeSOAP:            {"SUBJECTIVE", "OBJECTIVE", "ASSESSMENT", "PLAN"},
			valueobject.NoteTypeProgress:        {"SUBJECTIVE", "OBJECTIVE", "ASSESSMENT", "PLAN"},
			valueobject.NoteTypeConsultation:    {"SUBJECTIVE", "OBJECTIVE", "ASSESSMENT", "PLAN"},
			valueobject.NoteTypeFollowUp:        {"ASSESSMENT", "PLAN", "FOLLOW"},
			valueobject.NoteTypeDayByDaySummary: {},
		},
	}
}

// Validate checks one generated variant. Missing template sections and
// medications present in the source but absent from the output each cost
// score; the decision follows the score and the issue count.
func (v *NoteValidator) Validate(noteType valueobject.NoteType, sourceText, generated string) ValidationReport {
	report := ValidationReport{
		NoteType: noteType.String(),
		Score:    1.0,
		Issues:   []string{},
	}

	if strings.TrimSpace(generated) == "" {
		report.Issues = append(report.Issues, "generated output is empty")
		report.Score = 0
		report.Decision = DecisionReject
		return report
	}

	upper := strings.ToUpper(generated)
	for _, section := range v.sections[noteType] {
		if !strings.Contains(upper, section) {
			report.Issues = append(report.Issues, "missing required section: "+section)
			report.Score -= 0.15
		}
	}

	missing := missingMedications(sourceText, generated)
	if len(missing) > 0 {
		if len(missing) > 5 {
			missing = missing[:5]
		}
		report.Issues = append(report.Issues,
			fmt.Sprintf("medications from the source are absent: %s", strings.Join(missing, ", ")))
		report.Score -= min(0.3, float64(len(missing))*0.05)
	}

	if report.Score < 0 {
		report.Score = 0
	}
	report.Passed = len(report.Issues) == 0

	switch {
	case report.Score >= 0.9 && report.Passed:
		report.Decision = DecisionApprove
	case report.Score >= 0.7 && len(report.Issues) <= 1:
		report.Decision = DecisionReview
	default:
		report.Decision = DecisionReject
	}
	return report
}

// medicationPattern matches a capitalized drug name followed by a dose.
var medicationPattern = regexp.MustCompile(`([A-Z][a-z]{2,}(?: [A-Z][a-z]+)*) \d+(?:\.\d+)? ?(?:mg|mcg|g|ml|units?)\b`)

// missingMedications returns source medications that never appear in the
// generated output. Matching is case-insensitive substring containment so
// rephrased mentions still count.
func missingMedications(sourceText, generated string) []string {
	matches := medicationPattern.FindAllStringSubmatch(sourceText, 20)
	generatedLower := strings.ToLower(generated)

	var missing []string
	seen := make(map[string]bool)
	for _, match := range matches {
		name := match[1]
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		if !strings.Contains(generatedLower, key) {
			missing = append(missing, name)
		}
	}
	return missing
}
