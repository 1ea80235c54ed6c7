// Package rediscache implements the offer cache on Redis. Search results
// are stored as JSON blobs under a deterministic key per query, with a TTL
// short enough that cached offers stay bookable.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voyago/booking-api/internal/domain"
	"github.com/voyago/booking-api/internal/platform/config"
)

// NewClient creates a Redis client from configuration and verifies
// connectivity before returning.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return client, nil
}

// OfferCache implements ports.OfferCache backed by Redis.
type OfferCache struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewOfferCache creates an offer cache. Panics if client is nil.
// Defaults logger to slog.Default() if nil.
func NewOfferCache(client *redis.Client, logger *slog.Logger) *OfferCache {
	if client == nil {
		panic("OfferCache: client is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OfferCache{
		rdb:    client,
		logger: logger,
	}
}

// GetSearch returns cached offers for the key, or ok=false on miss.
// Implements ports.OfferCache.
func (c *OfferCache) GetSearch(ctx context.Context, key string) ([]domain.Offer, bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var offers []domain.Offer
	if err := json.Unmarshal(data, &offers); err != nil {
		// A corrupt entry is treated as a miss; the next write replaces it.
		c.logger.WarnContext(ctx, "dropping corrupt cache entry",
			slog.String("key", key),
			slog.Any("error", err),
		)
		c.rdb.Del(ctx, key)

		return nil, false, nil
	}

	return offers, true, nil
}

// SetSearch stores offers under the key for ttl. Implements
// ports.OfferCache.
func (c *OfferCache) SetSearch(ctx context.Context, key string, offers []domain.Offer, ttl time.Duration) error {
	data, err := json.Marshal(offers)
	if err != nil {
		return fmt.Errorf("encoding offers: %w", err)
	}

	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}

	return nil
}

// Name returns the health check name. Implements ports.HealthChecker.
func (c *OfferCache) Name() string {
	return "redis"
}

// Check verifies Redis connectivity. Implements ports.HealthChecker.
func (c *OfferCache) Check(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
