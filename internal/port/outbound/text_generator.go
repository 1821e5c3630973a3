package outbound

import (
	"context"
	"time"
)

// TextGenerator defines the interface for invoking a large language model
// to produce text. Implementations are expected to apply their own rate
// limiting before each outbound call.
type TextGenerator interface {
	// Generate produces text for the given prompts.
	Generate(ctx context.Context, request GenerationRequest) (*GenerationResult, error)
}

// GenerationRequest configures a single model invocation.
type GenerationRequest struct {
	SystemPrompt string        `json:"system_prompt"`
	UserPrompt   string        `json:"user_prompt"`
	MaxTokens    int           `json:"max_tokens"`
	Temperature  float64       `json:"temperature"`
	Timeout      time.Duration `json:"timeout,omitempty"`
}

// GenerationResult is the model's response to a generation request.
type GenerationResult struct {
	Text         string    `json:"text"`
	Model        string    `json:"model"`
	InputTokens  int       `json:"input_tokens,omitempty"`
	OutputTokens int       `json:"output_tokens,omitempty"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// GenerationError represents an error from the text generation service.
type GenerationError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Type      string `json:"type"` // auth, quota, throttling, validation, server
	Retryable bool   `json:"retryable"`
	Cause     error  `json:"cause,omitempty"`
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return "text generation error (" + e.Type + "/" + e.Code + "): " + e.Message + ": " + e.Cause.Error()
	}
	return "text generation error (" + e.Type + "/" + e.Code + "): " + e.Message
}

// Unwrap returns the underlying cause error.
func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether the error is retryable.
func (e *GenerationError) IsRetryable() bool {
	return e.Retryable
}

// IsThrottlingError returns whether the error is a rate-limit error.
func (e *GenerationError) IsThrottlingError() bool {
	return e.Type == "throttling" || e.Code == "rate_limit_exceeded"
}
