package repository

import (
	"context"
	"fmt"
	"time"

	"medinotes/internal/domain/entity"
	"medinotes/internal/port/outbound"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQLConversationRepository is the durable conversation tier. The
// chatbot's primary message store is owned by another service, so this
// backend is strictly read-only: writes are rejected and the cache layer
// above never attempts them.
type PostgreSQLConversationRepository struct {
	pool      *pgxpool.Pool
	table     string
	readLimit int
}

// NewPostgreSQLConversationRepository creates the read-only durable tier
// over the given messages table.
func NewPostgreSQLConversationRepository(pool *pgxpool.Pool, table string, readLimit int) *PostgreSQLConversationRepository {
	if readLimit <= 0 {
		readLimit = 100
	}
	return &PostgreSQLConversationRepository{
		pool:      pool,
		table:     table,
		readLimit: readLimit,
	}
}

// Name implements outbound.CacheBackend.
func (r *PostgreSQLConversationRepository) Name() string { return "postgres" }

// Available implements outbound.CacheBackend.
func (r *PostgreSQLConversationRepository) Available() bool { return true }

// ReadOnly marks this tier as never accepting writes. The cache layer
// skips it when saving, clearing, and backfilling.
func (r *PostgreSQLConversationRepository) ReadOnly() bool { return true }

// Get loads the session's assistant turns from the durable store, oldest
// first. Rows with a NULL query or response are still being written by the
// owning service and are excluded. Source indices are not persisted
// durably, so UsedIndices is always empty on records read from this tier.
func (r *PostgreSQLConversationRepository) Get(ctx context.Context, sessionID string) ([]entity.ConversationRecord, error) {
	rows, err := r.pool.Query(ctx, r.selectQuery(), sessionID)
	if err != nil {
		return nil, WrapError(err, "load conversation")
	}
	defer rows.Close()

	records := make([]entity.ConversationRecord, 0)
	for rows.Next() {
		var q, resp string
		var createdAt time.Time
		if err := rows.Scan(&q, &resp, &createdAt); err != nil {
			return nil, WrapError(err, "scan conversation row")
		}
		records = append(records, entity.ConversationRecord{
			Query:     q,
			Response:  resp,
			Timestamp: createdAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(err, "iterate conversation rows")
	}
	return records, nil
}

func (r *PostgreSQLConversationRepository) selectQuery() string {
	return fmt.Sprintf(`
		SELECT query, response, created_at
		FROM %s
		WHERE conversation_id = $1 AND role = 'assistant' AND deleted_at IS NULL
		  AND query IS NOT NULL AND response IS NOT NULL
		ORDER BY id ASC
		LIMIT %d`, r.table, r.readLimit)
}

// Set implements outbound.CacheBackend. The durable tier rejects writes.
func (r *PostgreSQLConversationRepository) Set(context.Context, string, []entity.ConversationRecord) error {
	return ErrReadOnly
}

// Add implements outbound.CacheBackend. The durable tier rejects writes.
func (r *PostgreSQLConversationRepository) Add(context.Context, string, entity.ConversationRecord) error {
	return ErrReadOnly
}

// Clear implements outbound.CacheBackend. The durable tier rejects writes.
func (r *PostgreSQLConversationRepository) Clear(context.Context, string) error {
	return ErrReadOnly
}

// Stats implements outbound.CacheBackend.
func (r *PostgreSQLConversationRepository) Stats(ctx context.Context) (outbound.CacheStats, error) {
	stats := outbound.CacheStats{
		Backend:   r.Name(),
		Available: true,
		ReadOnly:  true,
	}

	query := fmt.Sprintf(`
		SELECT COUNT(DISTINCT conversation_id), COUNT(*)
		FROM %s
		WHERE role = 'assistant' AND deleted_at IS NULL`, r.table)

	if err := r.pool.QueryRow(ctx, query).Scan(&stats.Sessions, &stats.TotalRecords); err != nil {
		stats.Available = false
		return stats, WrapError(err, "conversation stats")
	}
	return stats, nil
}
