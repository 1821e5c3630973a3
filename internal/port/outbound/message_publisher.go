package outbound

import (
	"context"
	"time"
)

// JobEvent describes a lifecycle transition of a processing task, published
// for downstream consumers (audit, notifications).
type JobEvent struct {
	JobID      string    `json:"job_id"`
	NoteID     string    `json:"note_id"`
	Status     string    `json:"status"`
	Workload   string    `json:"workload"` // "notes" or "embeddings"
	Error      string    `json:"error,omitempty"`
	RetryCount int       `json:"retry_count,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// MessagePublisher defines the outbound port for publishing job lifecycle
// events.
type MessagePublisher interface {
	PublishJobEvent(ctx context.Context, event JobEvent) error
}

// MessagePublisherHealth defines health monitoring capabilities for message
// publishers.
type MessagePublisherHealth interface {
	GetConnectionHealth() MessagePublisherHealthStatus
}

// MessagePublisherHealthStatus represents the health status of a message
// publisher.
type MessagePublisherHealthStatus struct {
	Connected        bool   `json:"connected"`
	LastError        string `json:"last_error,omitempty"`
	Uptime           string `json:"uptime"`
	Reconnects       int    `json:"reconnects"`
	JetStreamEnabled bool   `json:"jetstream_enabled"`
}
