package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const viewKeyPrefix = "clipstream:views:"

// ViewCounter accumulates video view events outside the primary store so a
// burst of playbacks does not turn into a burst of repository writes. Drain
// returns the pending deltas and resets them.
type ViewCounter interface {
	Increment(ctx context.Context, videoID string) error
	Drain(ctx context.Context) (map[string]int64, error)
}

// MemoryViewCounter keeps pending view deltas in-process. Suitable for a
// single replica; multiple replicas should share a Redis counter instead.
type MemoryViewCounter struct {
	mu      sync.Mutex
	pending map[string]int64
}

// NewMemoryViewCounter constructs an empty in-memory counter.
func NewMemoryViewCounter() *MemoryViewCounter {
	return &MemoryViewCounter{pending: make(map[string]int64)}
}

func (c *MemoryViewCounter) Increment(_ context.Context, videoID string) error {
	if videoID == "" {
		return fmt.Errorf("video id is required")
	}
	c.mu.Lock()
	c.pending[videoID]++
	c.mu.Unlock()
	return nil
}

func (c *MemoryViewCounter) Drain(context.Context) (map[string]int64, error) {
	c.mu.Lock()
	drained := c.pending
	c.pending = make(map[string]int64)
	c.mu.Unlock()
	return drained, nil
}

// RedisViewCounterConfig configures the Redis-backed view counter.
type RedisViewCounterConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
}

// RedisViewCounter shares pending view deltas across API replicas through
// Redis INCR.
type RedisViewCounter struct {
	client *redis.Client
}

// NewRedisViewCounter connects a view counter to Redis. The connection is
// verified eagerly so a misconfigured address fails at startup, not on the
// first playback.
func NewRedisViewCounter(ctx context.Context, cfg RedisViewCounterConfig) (*RedisViewCounter, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, fmt.Errorf("redis addr required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return &RedisViewCounter{client: client}, nil
}

// Close releases the Redis connection pool.
func (c *RedisViewCounter) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *RedisViewCounter) Increment(ctx context.Context, videoID string) error {
	if videoID == "" {
		return fmt.Errorf("video id is required")
	}
	return c.client.Incr(ctx, viewKeyPrefix+videoID).Err()
}

func (c *RedisViewCounter) Drain(ctx context.Context) (map[string]int64, error) {
	drained := make(map[string]int64)
	iter := c.client.Scan(ctx, 0, viewKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		value, err := c.client.GetDel(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return drained, fmt.Errorf("drain view key %s: %w", key, err)
		}
		count, err := strconv.ParseInt(value, 10, 64)
		if err != nil || count <= 0 {
			continue
		}
		drained[strings.TrimPrefix(key, viewKeyPrefix)] = count
	}
	if err := iter.Err(); err != nil {
		return drained, fmt.Errorf("scan view keys: %w", err)
	}
	return drained, nil
}

// FlushViews periodically folds pending view deltas into the repository until
// the context is cancelled. A final drain runs on shutdown so counts are not
// lost across restarts when the counter is in-memory.
func FlushViews(ctx context.Context, counter ViewCounter, repo Repository, interval time.Duration, logger *slog.Logger) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushOnce(context.Background(), counter, repo, logger)
			return ctx.Err()
		case <-ticker.C:
			flushOnce(ctx, counter, repo, logger)
		}
	}
}

func flushOnce(ctx context.Context, counter ViewCounter, repo Repository, logger *slog.Logger) {
	drained, err := counter.Drain(ctx)
	if err != nil && logger != nil {
		logger.Warn("drain view counter failed", "error", err)
	}
	for videoID, delta := range drained {
		if err := repo.AddVideoViews(ctx, videoID, delta); err != nil {
			// The video may have been deleted between the view and the flush.
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if logger != nil {
				logger.Warn("apply view delta failed", "video_id", videoID, "error", err)
			}
		}
	}
}
