package service

import (
	"context"
	"errors"

	"medinotes/internal/application/common/slogger"
	"medinotes/internal/application/dto"
	"medinotes/internal/domain/entity"
	"medinotes/internal/port/outbound"
)

// ChatMemoryService reads and writes conversation history through an
// ordered list of cache tiers, fastest first. Reads return the first
// non-empty tier; slower-tier hits are backfilled into the faster tiers.
// A tier error is treated as a miss so a degraded tier never fails a
// conversation read.
type ChatMemoryService struct {
	tiers      []outbound.CacheBackend
	summarizer outbound.ConversationSummarizer
}

// NewChatMemoryService creates the tiered conversation service. Tiers are
// consulted in the order given. The summarizer may be nil, which disables
// history compaction.
func NewChatMemoryService(tiers []outbound.CacheBackend, summarizer outbound.ConversationSummarizer) *ChatMemoryService {
	if len(tiers) == 0 {
		panic("at least one cache tier is required")
	}
	return &ChatMemoryService{
		tiers:      tiers,
		summarizer: summarizer,
	}
}

// GetResponses returns the session's history, oldest first. An unknown
// session yields an empty record list.
func (s *ChatMemoryService) GetResponses(ctx context.Context, sessionID string) (*dto.ConversationResponse, error) {
	records, hitIndex := s.read(ctx, sessionID)

	// History loaded from the durable store can be arbitrarily long;
	// compact it before it lands in the fast tiers.
	if hitIndex >= 0 && s.isReadOnlyTier(hitIndex) && s.summarizer != nil && s.summarizer.ShouldSummarize(records) {
		compacted, err := s.summarizer.Summarize(ctx, records)
		if err == nil {
			records = compacted
		} else {
			slogger.ErrorWithError(ctx, err, "History summarization failed", slogger.Fields{
				"session_id": sessionID,
			})
		}
	}

	if hitIndex > 0 {
		s.backfill(ctx, sessionID, records, hitIndex)
	}

	return toConversationResponse(sessionID, records), nil
}

// SaveResponse appends one exchange to every writable tier. Tier write
// failures are logged and absorbed; the exchange is saved as long as at
// least one writable tier accepted it.
func (s *ChatMemoryService) SaveResponse(ctx context.Context, sessionID string, request dto.SaveResponseRequest) error {
	if request.Query == "" && request.Response == "" {
		return errors.New("query and response cannot both be empty")
	}

	record := entity.NewConversationRecord(request.Query, request.Response, request.UsedIndices)

	saved := false
	for _, tier := range s.writableTiers() {
		if !tier.Available() {
			continue
		}
		if err := tier.Add(ctx, sessionID, record); err != nil {
			slogger.Warn(ctx, "Cache tier rejected write", slogger.Fields{
				"tier":       tier.Name(),
				"session_id": sessionID,
				"error":      err.Error(),
			})
			continue
		}
		saved = true
	}
	if !saved {
		return errors.New("no cache tier accepted the write")
	}
	return nil
}

// ClearSession removes the session's history from every writable tier.
// The durable store is never modified.
func (s *ChatMemoryService) ClearSession(ctx context.Context, sessionID string) error {
	for _, tier := range s.writableTiers() {
		if !tier.Available() {
			continue
		}
		if err := tier.Clear(ctx, sessionID); err != nil {
			slogger.Warn(ctx, "Cache tier clear failed", slogger.Fields{
				"tier":       tier.Name(),
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
	}
	return nil
}

// ForceRefresh discards the cached history and rebuilds it from the
// slowest tier that still has the session.
func (s *ChatMemoryService) ForceRefresh(ctx context.Context, sessionID string) (*dto.ConversationResponse, error) {
	if err := s.ClearSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.GetResponses(ctx, sessionID)
}

// CacheStats reports per-tier statistics in tier order.
func (s *ChatMemoryService) CacheStats(ctx context.Context) (*dto.CacheStatsResponse, error) {
	response := &dto.CacheStatsResponse{
		Tiers: make([]dto.TierStats, 0, len(s.tiers)),
	}
	for _, tier := range s.tiers {
		stats, err := tier.Stats(ctx)
		if err != nil {
			slogger.Warn(ctx, "Cache tier stats failed", slogger.Fields{
				"tier":  tier.Name(),
				"error": err.Error(),
			})
		}
		response.Tiers = append(response.Tiers, dto.TierStats{
			Backend:      stats.Backend,
			Available:    stats.Available,
			Sessions:     stats.Sessions,
			TotalRecords: stats.TotalRecords,
			ReadOnly:     stats.ReadOnly,
		})
	}
	return response, nil
}

// read consults tiers in order and returns the first non-empty history
// together with the index of the tier that served it, or (empty, -1) when
// every tier missed.
func (s *ChatMemoryService) read(ctx context.Context, sessionID string) ([]entity.ConversationRecord, int) {
	for i, tier := range s.tiers {
		if !tier.Available() {
			continue
		}
		records, err := tier.Get(ctx, sessionID)
		if err != nil {
			slogger.Warn(ctx, "Cache tier read failed, trying next tier", slogger.Fields{
				"tier":       tier.Name(),
				"session_id": sessionID,
				"error":      err.Error(),
			})
			continue
		}
		if len(records) > 0 {
			return records, i
		}
	}
	return []entity.ConversationRecord{}, -1
}

// backfill writes the history into the writable tiers faster than the one
// that served the read.
func (s *ChatMemoryService) backfill(ctx context.Context, sessionID string, records []entity.ConversationRecord, hitIndex int) {
	for i := hitIndex - 1; i >= 0; i-- {
		tier := s.tiers[i]
		if !tier.Available() || s.isReadOnlyTier(i) {
			continue
		}
		if err := tier.Set(ctx, sessionID, records); err != nil {
			slogger.Warn(ctx, "Cache tier backfill failed", slogger.Fields{
				"tier":       tier.Name(),
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
	}
}

func (s *ChatMemoryService) writableTiers() []outbound.CacheBackend {
	writable := make([]outbound.CacheBackend, 0, len(s.tiers))
	for i, tier := range s.tiers {
		if !s.isReadOnlyTier(i) {
			writable = append(writable, tier)
		}
	}
	return writable
}

// isReadOnlyTier reports whether the tier declares itself read-only.
// Tiers without the marker method are writable.
func (s *ChatMemoryService) isReadOnlyTier(index int) bool {
	type readOnlyReporter interface {
		ReadOnly() bool
	}
	if reporter, ok := s.tiers[index].(readOnlyReporter); ok {
		return reporter.ReadOnly()
	}
	return false
}

func toConversationResponse(sessionID string, records []entity.ConversationRecord) *dto.ConversationResponse {
	response := &dto.ConversationResponse{
		SessionID: sessionID,
		Records:   make([]dto.ConversationRecordResponse, 0, len(records)),
		Count:     len(records),
	}
	for _, record := range records {
		response.Records = append(response.Records, dto.ConversationRecordResponse{
			Query:        record.Query,
			Response:     record.Response,
			UsedIndices:  record.UsedIndices,
			Timestamp:    record.Timestamp,
			IsSummary:    record.IsSummary,
			MessageCount: record.MessageCount,
		})
	}
	return response
}
