package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/headstart-dev/headstart-backend/internal/logger"
)

// RecommendationCache stores computed recommendation feeds keyed by user
// and requested limit. A cache miss returns (nil, nil) so callers
// recompute; Redis failures are surfaced as errors but callers treat
// them as misses.
type RecommendationCache interface {
	Get(ctx context.Context, userID uuid.UUID, limit int, out any) (bool, error)
	Set(ctx context.Context, userID uuid.UUID, limit int, value any, ttl time.Duration) error
	Invalidate(ctx context.Context, userID uuid.UUID) error
	Close() error
}

type recommendationCache struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewRecommendationCache(log *logger.Logger) (RecommendationCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &recommendationCache{
		log: log.With("client", "RecommendationCache"),
		rdb: rdb,
	}, nil
}

func cacheKey(userID uuid.UUID, limit int) string {
	return fmt.Sprintf("recommendations:%s:%d", userID, limit)
}

func (c *recommendationCache) Get(ctx context.Context, userID uuid.UUID, limit int, out any) (bool, error) {
	if c == nil || c.rdb == nil {
		return false, fmt.Errorf("recommendation cache not initialized")
	}
	raw, err := c.rdb.Get(ctx, cacheKey(userID, limit)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		// A corrupt entry is a miss; drop it so the next write is clean.
		_ = c.rdb.Del(ctx, cacheKey(userID, limit)).Err()
		return false, nil
	}
	return true, nil
}

func (c *recommendationCache) Set(ctx context.Context, userID uuid.UUID, limit int, value any, ttl time.Duration) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("recommendation cache not initialized")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, cacheKey(userID, limit), raw, ttl).Err()
}

func (c *recommendationCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("recommendation cache not initialized")
	}
	pattern := fmt.Sprintf("recommendations:%s:*", userID)
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *recommendationCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
