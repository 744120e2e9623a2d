// Package redis caches finished extractions in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"ddtft/internal/config"
	"ddtft/internal/domain"
	"ddtft/internal/port"
)

const defaultPrefix = "ddtft:"

type resultCache struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewClient connects to Redis and verifies the connection with a ping.
func NewClient(cfg *config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// NewResultCacheFromClient wraps an existing client. A zero ttl keeps entries forever.
func NewResultCacheFromClient(client *goredis.Client, prefix string, ttl time.Duration) port.ResultCache {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &resultCache{client: client, prefix: prefix, ttl: ttl}
}

// Key returns the Redis key for a content hash.
func Key(prefix, contentHash string) string {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return prefix + "extraction:" + contentHash
}

func (c *resultCache) Get(ctx context.Context, contentHash string) (*domain.ExtractionRecord, error) {
	val, err := c.client.Get(ctx, Key(c.prefix, contentHash)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var rec domain.ExtractionRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("redis get decode: %w", err)
	}
	return &rec, nil
}

func (c *resultCache) Set(ctx context.Context, contentHash string, rec *domain.ExtractionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis set encode: %w", err)
	}
	if err := c.client.Set(ctx, Key(c.prefix, contentHash), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
