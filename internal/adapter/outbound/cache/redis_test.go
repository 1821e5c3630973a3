package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"medinotes/internal/config"
	"medinotes/internal/domain/entity"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisBackend(t *testing.T, maxEntries int) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	backend := NewRedisBackend(
		config.RedisConfig{Addr: mr.Addr()},
		config.CacheConfig{
			KeyPrefix:            "conv:",
			TTL:                  time.Hour,
			MaxEntriesPerSession: maxEntries,
		},
	)
	t.Cleanup(func() { _ = backend.Close() })
	return backend, mr
}

func TestRedisBackend_AddAndGetRoundTrip(t *testing.T) {
	backend, mr := newTestRedisBackend(t, 50)
	ctx := context.Background()

	record := entity.NewConversationRecord("how is the patient", "stable", []string{"notes-2025"})
	require.NoError(t, backend.Add(ctx, "session-1", record))

	records, err := backend.Get(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "how is the patient", records[0].Query)
	assert.Equal(t, []string{"notes-2025"}, records[0].UsedIndices)

	// Sliding expiration set on write and refreshed on read.
	assert.Positive(t, mr.TTL("conv:session-1"))
}

func TestRedisBackend_AddBoundsSessionLength(t *testing.T) {
	backend, _ := newTestRedisBackend(t, 3)
	ctx := context.Background()

	for i := range 5 {
		record := entity.NewConversationRecord(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i), nil)
		require.NoError(t, backend.Add(ctx, "session-1", record))
	}

	records, err := backend.Get(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, records, 3, "the list is trimmed to the configured cap")
	assert.Equal(t, "q2", records[0].Query, "oldest entries are dropped first")
	assert.Equal(t, "q4", records[2].Query)
}

func TestRedisBackend_SetReplacesSession(t *testing.T) {
	backend, _ := newTestRedisBackend(t, 50)
	ctx := context.Background()

	require.NoError(t, backend.Add(ctx, "session-1", entity.NewConversationRecord("old", "old", nil)))
	replacement := []entity.ConversationRecord{
		entity.NewSummaryRecord("condensed history", 8),
		entity.NewConversationRecord("fresh", "answer", nil),
	}
	require.NoError(t, backend.Set(ctx, "session-1", replacement))

	records, err := backend.Get(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].IsSummary)
	assert.Equal(t, 8, records[0].MessageCount)
	assert.Equal(t, "fresh", records[1].Query)
}

func TestRedisBackend_GetDropsCorruptRecords(t *testing.T) {
	backend, mr := newTestRedisBackend(t, 50)
	ctx := context.Background()

	require.NoError(t, backend.Add(ctx, "session-1", entity.NewConversationRecord("valid", "record", nil)))
	_, err := mr.Push("conv:session-1", "{not json")
	require.NoError(t, err)

	records, err := backend.Get(ctx, "session-1")
	require.NoError(t, err, "a corrupt element must not fail the read")
	require.Len(t, records, 1)
	assert.Equal(t, "valid", records[0].Query)
}

func TestRedisBackend_ErrorMarksUnavailableStickily(t *testing.T) {
	backend, mr := newTestRedisBackend(t, 50)
	ctx := context.Background()

	require.NoError(t, backend.Add(ctx, "session-1", entity.NewConversationRecord("q", "a", nil)))
	require.True(t, backend.Available())

	mr.SetError("simulated failure")
	_, err := backend.Get(ctx, "session-1")
	require.Error(t, err)
	assert.False(t, backend.Available())

	// Recovery on the server side does not re-enable the tier.
	mr.SetError("")
	_, err = backend.Get(ctx, "session-1")
	assert.ErrorIs(t, err, errRedisUnavailable)
	assert.ErrorIs(t, backend.Add(ctx, "session-1", entity.NewConversationRecord("q2", "a2", nil)), errRedisUnavailable)
	assert.ErrorIs(t, backend.Clear(ctx, "session-1"), errRedisUnavailable)
	assert.False(t, backend.Available())

	stats, err := backend.Stats(ctx)
	require.NoError(t, err)
	assert.False(t, stats.Available)
}

func TestRedisBackend_ClearRemovesSession(t *testing.T) {
	backend, mr := newTestRedisBackend(t, 50)
	ctx := context.Background()

	require.NoError(t, backend.Add(ctx, "session-1", entity.NewConversationRecord("q", "a", nil)))
	require.NoError(t, backend.Clear(ctx, "session-1"))

	assert.False(t, mr.Exists("conv:session-1"))
	records, err := backend.Get(ctx, "session-1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRedisBackend_StatsCountsSessions(t *testing.T) {
	backend, _ := newTestRedisBackend(t, 50)
	ctx := context.Background()

	require.NoError(t, backend.Add(ctx, "session-1", entity.NewConversationRecord("q", "a", nil)))
	require.NoError(t, backend.Add(ctx, "session-2", entity.NewConversationRecord("q", "a", nil)))

	stats, err := backend.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, stats.Available)
	assert.Equal(t, 2, stats.Sessions)
}
