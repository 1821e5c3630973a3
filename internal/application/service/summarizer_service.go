package service

import (
	"context"
	"fmt"
	"strings"

	"medinotes/internal/application/common/slogger"
	"medinotes/internal/config"
	"medinotes/internal/domain/entity"
	"medinotes/internal/port/outbound"
)

const summarySystemPrompt = "You are a medical conversation summarizer. " +
	"Condense the conversation below into a concise factual summary that preserves " +
	"patient details, clinical findings, and any follow-up items. Respond with the summary only."

// ConversationSummarizerService condenses long conversation histories into
// a single summary record followed by the most recent raw turns. It only
// ever rewrites cache tiers; the durable store is untouched.
type ConversationSummarizerService struct {
	generator outbound.TextGenerator
	config    config.SummarizerConfig
}

// NewConversationSummarizerService creates a summarizer backed by the
// given text generator.
func NewConversationSummarizerService(generator outbound.TextGenerator, cfg config.SummarizerConfig) *ConversationSummarizerService {
	if generator == nil {
		panic("generator cannot be nil")
	}
	return &ConversationSummarizerService{
		generator: generator,
		config:    cfg,
	}
}

// ShouldSummarize reports whether the history has grown past the
// configured threshold.
func (s *ConversationSummarizerService) ShouldSummarize(records []entity.ConversationRecord) bool {
	return len(records) > s.config.MaxMessages
}

// Summarize condenses everything older than the recent window into one
// summary record and returns the compacted history. If generation fails
// the recent window is returned as-is so a model outage never blocks a
// conversation read.
func (s *ConversationSummarizerService) Summarize(ctx context.Context, records []entity.ConversationRecord) ([]entity.ConversationRecord, error) {
	if !s.ShouldSummarize(records) {
		return records, nil
	}

	keepRecent := s.config.KeepRecent
	if keepRecent <= 0 || keepRecent >= len(records) {
		return records, nil
	}

	older := records[:len(records)-keepRecent]
	recent := records[len(records)-keepRecent:]

	result, err := s.generator.Generate(ctx, outbound.GenerationRequest{
		SystemPrompt: summarySystemPrompt,
		UserPrompt:   ConversationHistory(older),
		MaxTokens:    s.config.MaxTokens,
		Temperature:  s.config.Temperature,
	})
	if err != nil {
		slogger.ErrorWithError(ctx, err, "Conversation summarization failed, keeping recent turns only", slogger.Fields{
			"older_count":  len(older),
			"recent_count": len(recent),
		})
		compacted := make([]entity.ConversationRecord, len(recent))
		copy(compacted, recent)
		return compacted, nil
	}

	compacted := make([]entity.ConversationRecord, 0, len(recent)+1)
	compacted = append(compacted, entity.NewSummaryRecord(result.Text, len(older)))
	compacted = append(compacted, recent...)

	slogger.Info(ctx, "Conversation history summarized", slogger.Fields{
		"summarized_count": len(older),
		"recent_count":     len(recent),
		"output_tokens":    result.OutputTokens,
	})
	return compacted, nil
}

// ConversationHistory renders records as a plain-text transcript of
// alternating User/Assistant lines, suitable as model prompt context. A
// summary record appears as a single "[Previous conversation summary]"
// entry carrying the number of exchanges it replaced.
func ConversationHistory(records []entity.ConversationRecord) string {
	var sb strings.Builder
	for _, record := range records {
		if record.IsSummary {
			fmt.Fprintf(&sb, "[Previous conversation summary] (%d messages): %s\n", record.MessageCount, record.Response)
			continue
		}
		fmt.Fprintf(&sb, "User: %s\nAssistant: %s\n", record.Query, record.Response)
	}
	return sb.String()
}
