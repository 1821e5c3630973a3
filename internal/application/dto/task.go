package dto

import (
	"time"
)

// TaskResponse represents a processing task snapshot returned by status
// endpoints. It covers both note-processing jobs and embeddings tasks;
// retry fields are populated only for the latter.
type TaskResponse struct {
	ID           string         `json:"id"`
	NoteID       string         `json:"note_id"`
	Status       string         `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	Result       map[string]any `json:"result,omitempty"`
	RetryCount   int            `json:"retry_count,omitempty"`
	MaxRetries   int            `json:"max_retries,omitempty"`
	Duration     *string        `json:"duration,omitempty"` // Human-readable duration
}

// TaskListResponse represents the response for listing tasks.
type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Total int            `json:"total"`
}

// SubmitResponse is returned when a job or task is accepted for processing.
type SubmitResponse struct {
	ID     string `json:"id"`
	NoteID string `json:"note_id"`
	Status string `json:"status"`
}

// QueueStatsResponse describes a worker pool's current occupancy.
type QueueStatsResponse struct {
	Workload     string `json:"workload"`
	MaxWorkers   int    `json:"max_workers"`
	MaxQueueSize int    `json:"max_queue_size"`
	Queued       int    `json:"queued"`
	Processing   int    `json:"processing"`
	Completed    int    `json:"completed"`
	Failed       int    `json:"failed"`
	QueueFull    bool   `json:"queue_full"`
}

// RateLimiterStatsResponse reports aggregate throttling statistics for the
// outbound model API.
type RateLimiterStatsResponse struct {
	TotalRequests         int64   `json:"total_requests"`
	TotalWaitTime         float64 `json:"total_wait_time_seconds"`
	MaxWaitTime           float64 `json:"max_wait_time_seconds"`
	AvgWaitTime           float64 `json:"avg_wait_time_seconds"`
	RateLimitedCount      int64   `json:"rate_limited_count"`
	RateLimitedPercentage float64 `json:"rate_limited_percentage"`
	CurrentAvailable      float64 `json:"current_available_tokens"`
	ConfiguredRPS         float64 `json:"configured_rps"`
}
