package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"medinotes/internal/application/dto"
	"medinotes/internal/domain/entity"
	"medinotes/internal/port/outbound"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTier is an in-memory CacheBackend with fault injection.
type stubTier struct {
	name      string
	sessions  map[string][]entity.ConversationRecord
	getErr    error
	addErr    error
	setErr    error
	readOnly  bool
	available bool

	setCalls   int
	addCalls   int
	clearCalls int
}

func newStubTier(name string) *stubTier {
	return &stubTier{
		name:      name,
		sessions:  make(map[string][]entity.ConversationRecord),
		available: true,
	}
}

func (s *stubTier) Name() string    { return s.name }
func (s *stubTier) Available() bool { return s.available }
func (s *stubTier) ReadOnly() bool  { return s.readOnly }

func (s *stubTier) Get(_ context.Context, sessionID string) ([]entity.ConversationRecord, error) {
	if s.getErr != nil {
		s.available = false
		return nil, s.getErr
	}
	return s.sessions[sessionID], nil
}

func (s *stubTier) Set(_ context.Context, sessionID string, records []entity.ConversationRecord) error {
	s.setCalls++
	if s.setErr != nil {
		return s.setErr
	}
	s.sessions[sessionID] = records
	return nil
}

func (s *stubTier) Add(_ context.Context, sessionID string, record entity.ConversationRecord) error {
	s.addCalls++
	if s.addErr != nil {
		return s.addErr
	}
	s.sessions[sessionID] = append(s.sessions[sessionID], record)
	return nil
}

func (s *stubTier) Clear(_ context.Context, sessionID string) error {
	s.clearCalls++
	delete(s.sessions, sessionID)
	return nil
}

func (s *stubTier) Stats(_ context.Context) (outbound.CacheStats, error) {
	return outbound.CacheStats{
		Backend:   s.name,
		Available: s.available,
		Sessions:  len(s.sessions),
		ReadOnly:  s.readOnly,
	}, nil
}

// stubSummarizer compacts anything over the threshold into one summary
// plus the last keep records.
type stubSummarizer struct {
	threshold int
	keep      int
	calls     int
	err       error
}

func (s *stubSummarizer) ShouldSummarize(records []entity.ConversationRecord) bool {
	return len(records) > s.threshold
}

func (s *stubSummarizer) Summarize(_ context.Context, records []entity.ConversationRecord) ([]entity.ConversationRecord, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	summarized := len(records) - s.keep
	out := []entity.ConversationRecord{entity.NewSummaryRecord("condensed history", summarized)}
	return append(out, records[len(records)-s.keep:]...), nil
}

func makeRecords(n int) []entity.ConversationRecord {
	records := make([]entity.ConversationRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, entity.NewConversationRecord(
			fmt.Sprintf("question %d", i),
			fmt.Sprintf("answer %d", i),
			nil,
		))
	}
	return records
}

func TestChatMemoryService_FastestTierWins(t *testing.T) {
	memory := newStubTier("memory")
	redis := newStubTier("redis")
	postgres := newStubTier("postgres")
	postgres.readOnly = true

	memory.sessions["s1"] = makeRecords(1)
	redis.sessions["s1"] = makeRecords(2)
	postgres.sessions["s1"] = makeRecords(3)

	svc := NewChatMemoryService([]outbound.CacheBackend{memory, redis, postgres}, nil)

	response, err := svc.GetResponses(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, response.Count)
	assert.Equal(t, "question 0", response.Records[0].Query)
	assert.Zero(t, memory.setCalls)
}

func TestChatMemoryService_SlowerTierHitBackfillsFasterTiers(t *testing.T) {
	memory := newStubTier("memory")
	redis := newStubTier("redis")
	postgres := newStubTier("postgres")
	postgres.readOnly = true
	redis.sessions["s1"] = makeRecords(2)

	svc := NewChatMemoryService([]outbound.CacheBackend{memory, redis, postgres}, nil)

	response, err := svc.GetResponses(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, response.Count)
	assert.Len(t, memory.sessions["s1"], 2)
	assert.Zero(t, redis.setCalls)
}

func TestChatMemoryService_TierErrorIsTreatedAsMiss(t *testing.T) {
	memory := newStubTier("memory")
	redis := newStubTier("redis")
	redis.getErr = errors.New("connection refused")
	postgres := newStubTier("postgres")
	postgres.readOnly = true
	postgres.sessions["s1"] = makeRecords(3)

	svc := NewChatMemoryService([]outbound.CacheBackend{memory, redis, postgres}, nil)

	response, err := svc.GetResponses(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, response.Count)

	// The failed tier is now marked unavailable and must be skipped on
	// the next read without another round trip.
	assert.False(t, redis.Available())
	response, err = svc.GetResponses(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, response.Count)
}

func TestChatMemoryService_UnknownSessionYieldsEmptyHistory(t *testing.T) {
	svc := NewChatMemoryService([]outbound.CacheBackend{newStubTier("memory")}, nil)

	response, err := svc.GetResponses(context.Background(), "missing")
	require.NoError(t, err)
	assert.Zero(t, response.Count)
	assert.Empty(t, response.Records)
}

func TestChatMemoryService_DurableReadTriggersSummarization(t *testing.T) {
	memory := newStubTier("memory")
	postgres := newStubTier("postgres")
	postgres.readOnly = true
	postgres.sessions["s1"] = makeRecords(31)
	summarizer := &stubSummarizer{threshold: 30, keep: 10}

	svc := NewChatMemoryService([]outbound.CacheBackend{memory, postgres}, summarizer)

	response, err := svc.GetResponses(context.Background(), "s1")
	require.NoError(t, err)
	require.Equal(t, 11, response.Count)
	assert.True(t, response.Records[0].IsSummary)
	assert.Equal(t, 21, response.Records[0].MessageCount)
	assert.Equal(t, "question 21", response.Records[1].Query)

	// The compacted history, not the raw one, lands in the fast tier.
	require.Len(t, memory.sessions["s1"], 11)
	assert.True(t, memory.sessions["s1"][0].IsSummary)
}

func TestChatMemoryService_FastTierHitSkipsSummarization(t *testing.T) {
	memory := newStubTier("memory")
	memory.sessions["s1"] = makeRecords(40)
	summarizer := &stubSummarizer{threshold: 30, keep: 10}

	svc := NewChatMemoryService([]outbound.CacheBackend{memory}, summarizer)

	response, err := svc.GetResponses(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 40, response.Count)
	assert.Zero(t, summarizer.calls)
}

func TestChatMemoryService_SaveWritesAllWritableTiers(t *testing.T) {
	memory := newStubTier("memory")
	redis := newStubTier("redis")
	postgres := newStubTier("postgres")
	postgres.readOnly = true

	svc := NewChatMemoryService([]outbound.CacheBackend{memory, redis, postgres}, nil)

	err := svc.SaveResponse(context.Background(), "s1", dto.SaveResponseRequest{
		Query:       "how is the patient",
		Response:    "stable",
		UsedIndices: []string{"notes-2025"},
	})
	require.NoError(t, err)

	assert.Len(t, memory.sessions["s1"], 1)
	assert.Len(t, redis.sessions["s1"], 1)
	assert.Empty(t, postgres.sessions["s1"])
	assert.Zero(t, postgres.addCalls)
	assert.Equal(t, []string{"notes-2025"}, memory.sessions["s1"][0].UsedIndices)
}

func TestChatMemoryService_SaveSucceedsWhenOneTierFails(t *testing.T) {
	memory := newStubTier("memory")
	redis := newStubTier("redis")
	redis.addErr = errors.New("write timeout")

	svc := NewChatMemoryService([]outbound.CacheBackend{memory, redis}, nil)

	err := svc.SaveResponse(context.Background(), "s1", dto.SaveResponseRequest{Query: "q", Response: "a"})
	require.NoError(t, err)
	assert.Len(t, memory.sessions["s1"], 1)
}

func TestChatMemoryService_SaveFailsWhenNoTierAccepts(t *testing.T) {
	memory := newStubTier("memory")
	memory.addErr = errors.New("full")

	svc := NewChatMemoryService([]outbound.CacheBackend{memory}, nil)

	err := svc.SaveResponse(context.Background(), "s1", dto.SaveResponseRequest{Query: "q", Response: "a"})
	assert.Error(t, err)
}

func TestChatMemoryService_SaveRejectsEmptyExchange(t *testing.T) {
	svc := NewChatMemoryService([]outbound.CacheBackend{newStubTier("memory")}, nil)

	err := svc.SaveResponse(context.Background(), "s1", dto.SaveResponseRequest{})
	assert.Error(t, err)
}

func TestChatMemoryService_ClearSkipsDurableTier(t *testing.T) {
	memory := newStubTier("memory")
	memory.sessions["s1"] = makeRecords(2)
	postgres := newStubTier("postgres")
	postgres.readOnly = true
	postgres.sessions["s1"] = makeRecords(5)

	svc := NewChatMemoryService([]outbound.CacheBackend{memory, postgres}, nil)

	require.NoError(t, svc.ClearSession(context.Background(), "s1"))
	assert.Empty(t, memory.sessions["s1"])
	assert.Len(t, postgres.sessions["s1"], 5)
	assert.Zero(t, postgres.clearCalls)
}

func TestChatMemoryService_ForceRefreshRebuildsFromDurableStore(t *testing.T) {
	memory := newStubTier("memory")
	memory.sessions["s1"] = makeRecords(1)
	postgres := newStubTier("postgres")
	postgres.readOnly = true
	postgres.sessions["s1"] = makeRecords(4)

	svc := NewChatMemoryService([]outbound.CacheBackend{memory, postgres}, nil)

	response, err := svc.ForceRefresh(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 4, response.Count)
	assert.Len(t, memory.sessions["s1"], 4)
}

func TestChatMemoryService_CacheStatsReportsTiersInOrder(t *testing.T) {
	memory := newStubTier("memory")
	postgres := newStubTier("postgres")
	postgres.readOnly = true

	svc := NewChatMemoryService([]outbound.CacheBackend{memory, postgres}, nil)

	stats, err := svc.CacheStats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats.Tiers, 2)
	assert.Equal(t, "memory", stats.Tiers[0].Backend)
	assert.Equal(t, "postgres", stats.Tiers[1].Backend)
	assert.True(t, stats.Tiers[1].ReadOnly)
}
