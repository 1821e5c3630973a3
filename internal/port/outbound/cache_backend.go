package outbound

import (
	"context"

	"medinotes/internal/domain/entity"
)

// CacheBackend is a pluggable storage tier for conversation history. All
// three tiers implement the same interface; a read-only tier returns an
// error from its write methods.
type CacheBackend interface {
	// Name identifies the tier in logs and stats ("memory", "redis", "postgres").
	Name() string

	// Get returns the ordered record sequence for a session, oldest first.
	// A missing session yields an empty slice, not an error.
	Get(ctx context.Context, sessionID string) ([]entity.ConversationRecord, error)

	// Set replaces the session's record sequence.
	Set(ctx context.Context, sessionID string, records []entity.ConversationRecord) error

	// Add appends a record to the session, evicting the oldest record when
	// the per-session bound is exceeded.
	Add(ctx context.Context, sessionID string, record entity.ConversationRecord) error

	// Clear removes all records for a session.
	Clear(ctx context.Context, sessionID string) error

	// Stats reports backend-level statistics.
	Stats(ctx context.Context) (CacheStats, error)

	// Available reports whether the backend is usable. A backend that has
	// observed a connectivity error may report false for the remainder of
	// the process lifetime.
	Available() bool
}

// CacheStats describes one backend's state for monitoring.
type CacheStats struct {
	Backend      string `json:"backend"`
	Available    bool   `json:"available"`
	Sessions     int    `json:"sessions,omitempty"`
	TotalRecords int    `json:"total_records,omitempty"`
	ReadOnly     bool   `json:"read_only,omitempty"`
}

// ConversationSummarizer compresses long conversation histories.
type ConversationSummarizer interface {
	// ShouldSummarize reports whether the record sequence is long enough to
	// warrant compression.
	ShouldSummarize(records []entity.ConversationRecord) bool

	// Summarize produces a shorter sequence whose first element is a
	// summary record covering the elided prefix. The input is not modified.
	Summarize(ctx context.Context, records []entity.ConversationRecord) ([]entity.ConversationRecord, error)
}
