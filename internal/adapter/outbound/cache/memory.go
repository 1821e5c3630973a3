// Package cache implements the fast conversation-history tiers: a
// process-local in-memory backend and a shared Redis backend. Both expose
// the same CacheBackend interface as the durable PostgreSQL tier.
package cache

import (
	"context"
	"sync"

	"medinotes/internal/domain/entity"
	"medinotes/internal/port/outbound"
)

// MemoryBackend is the fastest tier: a bounded per-session ring buffer in
// process memory. It never fails and is always available.
type MemoryBackend struct {
	mu         sync.RWMutex
	sessions   map[string][]entity.ConversationRecord
	maxEntries int
}

// NewMemoryBackend creates an in-memory backend bounding each session to
// maxEntries records, oldest evicted first.
func NewMemoryBackend(maxEntries int) *MemoryBackend {
	return &MemoryBackend{
		sessions:   make(map[string][]entity.ConversationRecord),
		maxEntries: maxEntries,
	}
}

// Name implements outbound.CacheBackend.
func (m *MemoryBackend) Name() string { return "memory" }

// Available implements outbound.CacheBackend. Process memory cannot fail.
func (m *MemoryBackend) Available() bool { return true }

// Get implements outbound.CacheBackend.
func (m *MemoryBackend) Get(_ context.Context, sessionID string) ([]entity.ConversationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := m.sessions[sessionID]
	out := make([]entity.ConversationRecord, len(records))
	copy(out, records)
	return out, nil
}

// Set implements outbound.CacheBackend. Oversized inputs keep the newest
// records.
func (m *MemoryBackend) Set(_ context.Context, sessionID string, records []entity.ConversationRecord) error {
	trimmed := records
	if len(trimmed) > m.maxEntries {
		trimmed = trimmed[len(trimmed)-m.maxEntries:]
	}
	stored := make([]entity.ConversationRecord, len(trimmed))
	copy(stored, trimmed)

	m.mu.Lock()
	m.sessions[sessionID] = stored
	m.mu.Unlock()
	return nil
}

// Add implements outbound.CacheBackend.
func (m *MemoryBackend) Add(_ context.Context, sessionID string, record entity.ConversationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := append(m.sessions[sessionID], record)
	if len(records) > m.maxEntries {
		records = records[len(records)-m.maxEntries:]
	}
	m.sessions[sessionID] = records
	return nil
}

// Clear implements outbound.CacheBackend.
func (m *MemoryBackend) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	return nil
}

// Stats implements outbound.CacheBackend.
func (m *MemoryBackend) Stats(_ context.Context) (outbound.CacheStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, records := range m.sessions {
		total += len(records)
	}
	return outbound.CacheStats{
		Backend:      m.Name(),
		Available:    true,
		Sessions:     len(m.sessions),
		TotalRecords: total,
	}, nil
}
