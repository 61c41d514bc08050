package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/selivandex/regime-watch/internal/adapters/config"
	"github.com/selivandex/regime-watch/pkg/logger"
	"github.com/selivandex/regime-watch/pkg/models"
)

// Cache is an optional redis-backed local cache for the latest quote and
// snapshot, letting the watcher bridge short feed gaps. A nil *Cache is
// valid and all methods no-op on it.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to redis and verifies the connection
func New(ctx context.Context, cfg *config.RedisConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis cache initialized",
		zap.String("address", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		zap.Duration("ttl", cfg.TTL),
	)

	return &Cache{client: client, ttl: cfg.TTL}, nil
}

// StoreSnapshot caches the latest indicator snapshot
func (c *Cache) StoreSnapshot(ctx context.Context, snap models.IndicatorSnapshot) {
	if c == nil {
		return
	}
	c.set(ctx, "regime-watch:snapshot:"+snap.Symbol, snap)
}

// Snapshot returns the cached snapshot, if any
func (c *Cache) Snapshot(ctx context.Context, symbol string) (models.IndicatorSnapshot, bool) {
	var snap models.IndicatorSnapshot
	if c == nil {
		return snap, false
	}
	ok := c.get(ctx, "regime-watch:snapshot:"+symbol, &snap)
	return snap, ok
}

// StoreQuote caches the latest quote
func (c *Cache) StoreQuote(ctx context.Context, quote models.Quote) {
	if c == nil {
		return
	}
	c.set(ctx, "regime-watch:quote:"+quote.Symbol, quote)
}

// Quote returns the cached quote, if any
func (c *Cache) Quote(ctx context.Context, symbol string) (models.Quote, bool) {
	var quote models.Quote
	if c == nil {
		return quote, false
	}
	ok := c.get(ctx, "regime-watch:quote:"+symbol, &quote)
	return quote, ok
}

// Close releases the redis connection
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Cache) set(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Warn("failed to marshal cache value", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Warn("failed to write cache", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) get(ctx context.Context, key string, out interface{}) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("failed to read cache", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		logger.Warn("failed to unmarshal cache value", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}
