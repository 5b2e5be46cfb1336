// Package redis provides an answer cache shared across API replicas.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/papercomputeco/askbase/pkg/cache"
	"github.com/papercomputeco/askbase/pkg/rag"
)

const (
	DefaultTTL = 5 * time.Minute

	keyPrefix = "askbase:answer:"
	scanBatch = 100
)

// Config configures the Redis cache.
type Config struct {
	// Addr is host:port of the Redis server.
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Cache implements cache.Cache on Redis.
type Cache struct {
	client *goredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, c Config, logger *slog.Logger) (*Cache, error) {
	if c.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	ttl := c.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis answer cache initialized", "addr", c.Addr, "ttl", ttl)
	return &Cache{client: client, ttl: ttl, logger: logger}, nil
}

// Get returns the cached answer for question.
func (c *Cache) Get(ctx context.Context, question string) (*rag.QueryResult, bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+cache.Key(question)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cached answer: %w", err)
	}

	var result rag.QueryResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false, fmt.Errorf("decoding cached answer: %w", err)
	}
	return &result, true, nil
}

// Set caches result with the configured TTL.
func (c *Cache) Set(ctx context.Context, question string, result *rag.QueryResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding answer: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+cache.Key(question), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("caching answer: %w", err)
	}
	return nil
}

// Clear deletes every askbase answer key.
func (c *Cache) Clear(ctx context.Context) error {
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("scanning cached answers: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("deleting cached answers: %w", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	c.logger.Info("cleared answer cache", "keys", deleted)
	return nil
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

var _ cache.Cache = (*Cache)(nil)
