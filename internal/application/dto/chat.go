package dto

import "time"

// SaveResponseRequest records one chat exchange into a session's history.
type SaveResponseRequest struct {
	Query       string   `json:"query"`
	Response    string   `json:"response"`
	UsedIndices []string `json:"used_indices,omitempty"`
}

// ConversationRecordResponse is one record of a session's history.
type ConversationRecordResponse struct {
	Query        string    `json:"query"`
	Response     string    `json:"response"`
	UsedIndices  []string  `json:"used_indices,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	IsSummary    bool      `json:"is_summary,omitempty"`
	MessageCount int       `json:"message_count,omitempty"`
}

// ConversationResponse is a session's history in chronological order.
type ConversationResponse struct {
	SessionID string                       `json:"session_id"`
	Records   []ConversationRecordResponse `json:"records"`
	Count     int                          `json:"count"`
}

// CacheStatsResponse reports per-tier cache statistics.
type CacheStatsResponse struct {
	Tiers []TierStats `json:"tiers"`
}

// TierStats describes one cache tier for monitoring.
type TierStats struct {
	Backend      string `json:"backend"`
	Available    bool   `json:"available"`
	Sessions     int    `json:"sessions,omitempty"`
	TotalRecords int    `json:"total_records,omitempty"`
	ReadOnly     bool   `json:"read_only,omitempty"`
}
