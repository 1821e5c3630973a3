package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"medinotes/internal/application/common/slogger"
	"medinotes/internal/config"
	"medinotes/internal/domain/entity"
	"medinotes/internal/port/outbound"

	redis "github.com/redis/go-redis/v9"
)

// RedisBackend is the shared tier: each session's history is a Redis list
// of JSON records with a sliding TTL refreshed on every access.
//
// Any observed error marks the backend unavailable for the remainder of
// the process lifetime; there is no recovery probe. Restart the process to
// re-enable the tier.
type RedisBackend struct {
	client     *redis.Client
	keyPrefix  string
	ttl        time.Duration
	maxEntries int
	available  atomic.Bool
}

// NewRedisBackend creates the shared Redis tier.
func NewRedisBackend(cfg config.RedisConfig, cacheCfg config.CacheConfig) *RedisBackend {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	backend := &RedisBackend{
		client:     client,
		keyPrefix:  cacheCfg.KeyPrefix,
		ttl:        cacheCfg.TTL,
		maxEntries: cacheCfg.MaxEntriesPerSession,
	}
	backend.available.Store(true)
	return backend
}

// Name implements outbound.CacheBackend.
func (r *RedisBackend) Name() string { return "redis" }

// Available implements outbound.CacheBackend.
func (r *RedisBackend) Available() bool { return r.available.Load() }

// Ping verifies connectivity, for health checks. A failed ping marks the
// backend unavailable like any other error.
func (r *RedisBackend) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		r.markUnavailable(ctx, "ping", err)
		return err
	}
	return nil
}

func (r *RedisBackend) key(sessionID string) string {
	return r.keyPrefix + sessionID
}

func (r *RedisBackend) markUnavailable(ctx context.Context, operation string, err error) {
	if r.available.CompareAndSwap(true, false) {
		slogger.ErrorWithError(ctx, err, "Redis tier marked unavailable", slogger.Fields{
			"operation": operation,
		})
	}
}

var errRedisUnavailable = errors.New("redis backend is unavailable")

// Get implements outbound.CacheBackend.
func (r *RedisBackend) Get(ctx context.Context, sessionID string) ([]entity.ConversationRecord, error) {
	if !r.available.Load() {
		return nil, errRedisUnavailable
	}

	raw, err := r.client.LRange(ctx, r.key(sessionID), 0, -1).Result()
	if err != nil {
		r.markUnavailable(ctx, "get", err)
		return nil, fmt.Errorf("redis LRANGE failed: %w", err)
	}
	if len(raw) == 0 {
		return []entity.ConversationRecord{}, nil
	}

	records := make([]entity.ConversationRecord, 0, len(raw))
	for _, item := range raw {
		var record entity.ConversationRecord
		if err := json.Unmarshal([]byte(item), &record); err != nil {
			// A corrupt element is dropped rather than failing the read.
			slogger.Warn(ctx, "Dropping undecodable cache record", slogger.Fields{
				"session_id": sessionID,
				"error":      err.Error(),
			})
			continue
		}
		records = append(records, record)
	}

	// Sliding expiration: reads keep the session alive.
	if err := r.client.Expire(ctx, r.key(sessionID), r.ttl).Err(); err != nil {
		r.markUnavailable(ctx, "expire", err)
	}
	return records, nil
}

// Set implements outbound.CacheBackend.
func (r *RedisBackend) Set(ctx context.Context, sessionID string, records []entity.ConversationRecord) error {
	if !r.available.Load() {
		return errRedisUnavailable
	}

	if len(records) > r.maxEntries {
		records = records[len(records)-r.maxEntries:]
	}

	values := make([]interface{}, 0, len(records))
	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal cache record: %w", err)
		}
		values = append(values, data)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key(sessionID))
	if len(values) > 0 {
		pipe.RPush(ctx, r.key(sessionID), values...)
		pipe.Expire(ctx, r.key(sessionID), r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.markUnavailable(ctx, "set", err)
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

// Add implements outbound.CacheBackend.
func (r *RedisBackend) Add(ctx context.Context, sessionID string, record entity.ConversationRecord) error {
	if !r.available.Load() {
		return errRedisUnavailable
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal cache record: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, r.key(sessionID), data)
	// Bound the list and refresh the sliding TTL in the same round trip.
	pipe.LTrim(ctx, r.key(sessionID), int64(-r.maxEntries), -1)
	pipe.Expire(ctx, r.key(sessionID), r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		r.markUnavailable(ctx, "add", err)
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

// Clear implements outbound.CacheBackend.
func (r *RedisBackend) Clear(ctx context.Context, sessionID string) error {
	if !r.available.Load() {
		return errRedisUnavailable
	}

	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		r.markUnavailable(ctx, "clear", err)
		return fmt.Errorf("redis DEL failed: %w", err)
	}
	return nil
}

// Stats implements outbound.CacheBackend.
func (r *RedisBackend) Stats(ctx context.Context) (outbound.CacheStats, error) {
	stats := outbound.CacheStats{
		Backend:   r.Name(),
		Available: r.available.Load(),
	}
	if !stats.Available {
		return stats, nil
	}

	keys, err := r.client.Keys(ctx, r.keyPrefix+"*").Result()
	if err != nil {
		r.markUnavailable(ctx, "stats", err)
		stats.Available = false
		return stats, nil
	}
	stats.Sessions = len(keys)
	return stats, nil
}

// Close releases the Redis connection.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
