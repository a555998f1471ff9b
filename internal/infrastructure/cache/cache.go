// Package cache is the read-through Redis cache for the statistics endpoint.
// Redis is never authoritative: any miss or Redis failure falls back to the
// database, and every counter-moving mutation invalidates the key.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const statsKey = "registry:statistics"

// StatsCache caches the serialized statistics payload.
type StatsCache struct {
	Rdb *redis.Client
	TTL time.Duration
}

// New builds a StatsCache from a Redis URL. A bad or empty URL yields a nil
// client, which disables caching without failing startup.
func New(redisURL string, ttl time.Duration) *StatsCache {
	if redisURL == "" {
		return &StatsCache{TTL: ttl}
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn().Err(err).Msg("invalid REDIS_URL, statistics cache disabled")
		return &StatsCache{TTL: ttl}
	}
	return &StatsCache{Rdb: redis.NewClient(opts), TTL: ttl}
}

// Get returns the cached payload, or "" on miss/disabled/error.
func (s *StatsCache) Get(ctx context.Context) string {
	if s == nil || s.Rdb == nil {
		return ""
	}
	val, err := s.Rdb.Get(ctx, statsKey).Result()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Msg("statistics cache read failed")
		}
		return ""
	}
	return val
}

// Set stores the payload with the configured TTL. Best effort.
func (s *StatsCache) Set(ctx context.Context, payload string) {
	if s == nil || s.Rdb == nil {
		return
	}
	if err := s.Rdb.Set(ctx, statsKey, payload, s.TTL).Err(); err != nil {
		log.Warn().Err(err).Msg("statistics cache write failed")
	}
}

// Invalidate drops the cached payload. Best effort.
func (s *StatsCache) Invalidate(ctx context.Context) {
	if s == nil || s.Rdb == nil {
		return
	}
	if err := s.Rdb.Del(ctx, statsKey).Err(); err != nil {
		log.Warn().Err(err).Msg("statistics cache invalidation failed")
	}
}
