package service

import (
	"fmt"
	"os"
	"strings"

	"medinotes/internal/domain/valueobject"

	"gopkg.in/yaml.v3"
)

// PromptTemplate holds the system prompt and user prompt template for one
// note variant. The user template must contain a {{note}} placeholder.
type PromptTemplate struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// PromptCatalog maps note variants to their generation prompts.
type PromptCatalog struct {
	prompts map[valueobject.NoteType]PromptTemplate
}

const notePlaceholder = "{{note}}"

const defaultSystemPrompt = "You are a clinical documentation assistant. " +
	"Use only information present in the source note. Do not invent findings."

// DefaultPromptCatalog returns the built-in prompts for every supported
// note variant.
func DefaultPromptCatalog() *PromptCatalog {
	return &PromptCatalog{prompts: map[valueobject.NoteType]PromptTemplate{
		valueobject.NoteTypeSOAP: {
			System: defaultSystemPrompt,
			User: "Rewrite the following clinical note as a SOAP note with Subjective, " +
				"Objective, Assessment, and Plan sections.\n\n" + notePlaceholder,
		},
		valueobject.NoteTypeProgress: {
			System: defaultSystemPrompt,
			User: "Rewrite the following clinical note as a progress note covering interval " +
				"history, current status, and plan changes.\n\n" + notePlaceholder,
		},
		valueobject.NoteTypeConsultation: {
			System: defaultSystemPrompt,
			User: "Rewrite the following clinical note as a consultation note with reason for " +
				"consultation, findings, impression, and recommendations.\n\n" + notePlaceholder,
		},
		valueobject.NoteTypeFollowUp: {
			System: defaultSystemPrompt,
			User: "Rewrite the following clinical note as a follow-up visit note focused on " +
				"changes since the previous encounter and next steps.\n\n" + notePlaceholder,
		},
		valueobject.NoteTypeDayByDaySummary: {
			System: defaultSystemPrompt,
			User: "Summarize the following clinical note as a day-by-day account of the " +
				"patient's course, one entry per day.\n\n" + notePlaceholder,
		},
	}}
}

// LoadPromptCatalog reads prompt overrides from a YAML file keyed by note
// type. Variants absent from the file keep their built-in prompts.
func LoadPromptCatalog(path string) (*PromptCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt catalog: %w", err)
	}

	var overrides map[string]PromptTemplate
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse prompt catalog: %w", err)
	}

	catalog := DefaultPromptCatalog()
	for key, template := range overrides {
		noteType, err := valueobject.NewNoteType(key)
		if err != nil {
			return nil, fmt.Errorf("prompt catalog: %w", err)
		}
		if !strings.Contains(template.User, notePlaceholder) {
			return nil, fmt.Errorf("prompt for %q is missing the %s placeholder", key, notePlaceholder)
		}
		if template.System == "" {
			template.System = defaultSystemPrompt
		}
		catalog.prompts[noteType] = template
	}
	return catalog, nil
}

// Render returns the system prompt and the user prompt with the note text
// substituted in.
func (c *PromptCatalog) Render(noteType valueobject.NoteType, noteText string) (string, string, error) {
	template, ok := c.prompts[noteType]
	if !ok {
		return "", "", fmt.Errorf("no prompt registered for note type %q", noteType)
	}
	return template.System, strings.ReplaceAll(template.User, notePlaceholder, noteText), nil
}

// NoteTypes returns the variants the catalog can generate, in a stable
// order.
func (c *PromptCatalog) NoteTypes() []valueobject.NoteType {
	types := make([]valueobject.NoteType, 0, len(c.prompts))
	for _, noteType := range valueobject.AllNoteTypes() {
		if _, ok := c.prompts[noteType]; ok {
			types = append(types, noteType)
		}
	}
	return types
}
