package entity

import (
	"time"
)

// ConversationRecord is one query/response exchange in a chat session.
// Records are stored newest-last; a summary record compresses a prefix of
// the history and carries the number of exchanges it replaced.
type ConversationRecord struct {
	Query        string    `json:"query"`
	Response     string    `json:"response"`
	UsedIndices  []string  `json:"used_indices,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	IsSummary    bool      `json:"is_summary,omitempty"`
	MessageCount int       `json:"message_count,omitempty"`
}

// NewConversationRecord creates a record for a single exchange.
func NewConversationRecord(query, response string, usedIndices []string) ConversationRecord {
	return ConversationRecord{
		Query:       query,
		Response:    response,
		UsedIndices: usedIndices,
		Timestamp:   time.Now(),
	}
}

// NewSummaryRecord creates a record holding a summary of messageCount
// earlier exchanges.
func NewSummaryRecord(summary string, messageCount int) ConversationRecord {
	return ConversationRecord{
		Query:        "[Conversation Summary]",
		Response:     summary,
		Timestamp:    time.Now(),
		IsSummary:    true,
		MessageCount: messageCount,
	}
}
