package inbound

import (
	"context"

	"medinotes/internal/application/dto"
)

// ChatMemoryService defines the inbound port for conversation history
// operations backed by the tiered cache.
type ChatMemoryService interface {
	// GetResponses returns a session's history, oldest first. A session
	// with no history yields an empty record list, not an error.
	GetResponses(ctx context.Context, sessionID string) (*dto.ConversationResponse, error)

	// SaveResponse appends one exchange to the session's history.
	SaveResponse(ctx context.Context, sessionID string, request dto.SaveResponseRequest) error

	// ClearSession removes the session's cached history.
	ClearSession(ctx context.Context, sessionID string) error

	// ForceRefresh discards cached history and rebuilds it from the
	// durable store.
	ForceRefresh(ctx context.Context, sessionID string) (*dto.ConversationResponse, error)

	// CacheStats reports per-tier statistics.
	CacheStats(ctx context.Context) (*dto.CacheStatsResponse, error)
}

// HealthService defines the inbound port for health check operations.
type HealthService interface {
	GetHealth(ctx context.Context) (*dto.HealthResponse, error)
}
