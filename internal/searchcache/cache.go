// Package searchcache caches mapped search results so several users watching
// the same route in one cycle share a single upstream call.
package searchcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/farewatch/farewatch/internal/flight"
	"github.com/farewatch/farewatch/internal/flight/amadeus"
)

// Cache stores search results keyed by query identity. Implementations are
// best effort: a miss or a storage failure means re-searching, never a failed
// cycle.
type Cache interface {
	Get(ctx context.Context, query amadeus.SearchQuery) ([]flight.Offer, bool)
	Set(ctx context.Context, query amadeus.SearchQuery, offers []flight.Offer) error
	Close() error
}

// RedisCache caches offers in Redis with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// TTL bounds how stale cached offers may get. Default: 5 minutes
	TTL time.Duration

	Logger zerolog.Logger
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	if cfg.TTL == 0 {
		cfg.TTL = 5 * time.Minute
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisCache{
		client: client,
		ttl:    cfg.TTL,
		logger: cfg.Logger,
	}, nil
}

// Get returns cached offers for the query, or (nil, false) on a miss, a
// decode failure, or a Redis error.
func (c *RedisCache) Get(ctx context.Context, query amadeus.SearchQuery) ([]flight.Offer, bool) {
	key := Key(query)

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("search cache read failed")
		}
		return nil, false
	}

	var offers []flight.Offer
	if err := json.Unmarshal(data, &offers); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		return nil, false
	}
	return offers, true
}

// Set stores the offers under the query's key for the configured TTL.
func (c *RedisCache) Set(ctx context.Context, query amadeus.SearchQuery, offers []flight.Offer) error {
	data, err := json.Marshal(offers)
	if err != nil {
		return fmt.Errorf("encoding offers: %w", err)
	}
	return c.client.Set(ctx, Key(query), data, c.ttl).Err()
}

// Close releases the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// NoOpCache satisfies Cache without storing anything, for deployments
// without Redis.
type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (NoOpCache) Get(context.Context, amadeus.SearchQuery) ([]flight.Offer, bool) {
	return nil, false
}

func (NoOpCache) Set(context.Context, amadeus.SearchQuery, []flight.Offer) error {
	return nil
}

func (NoOpCache) Close() error {
	return nil
}

// Key derives the cache key for a query: a SHA-256 of its canonical request
// encoding, so identical searches collide and near-identical ones do not.
func Key(query amadeus.SearchQuery) string {
	sum := sha256.Sum256([]byte(query.Values().Encode()))
	return "search:" + hex.EncodeToString(sum[:])
}
