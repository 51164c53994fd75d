package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ManuelReschke/InstaGrowth/internal/pkg/config"
)

var client *redis.Client

// SetupCache connects to the Redis compatible cache. It returns nil when no
// cache host is configured; callers treat that as "metering disabled".
func SetupCache(ctx context.Context, cfg config.CacheConfig, log *zap.Logger) *redis.Client {
	if !cfg.Configured() {
		log.Warn("cache not configured, usage metering and account lists disabled")
		return nil
	}

	c := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       0, // use default DB
	})

	// Test the connection
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		log.Warn("could not connect to cache", zap.String("addr", c.Options().Addr), zap.Error(err))
	} else {
		log.Info("connected to cache", zap.String("addr", c.Options().Addr))
	}

	client = c
	return c
}

// GetClient returns the client set up by SetupCache, or nil.
func GetClient() *redis.Client {
	return client
}

// Close closes c when it is non-nil.
func Close(c *redis.Client) error {
	if c == nil {
		return nil
	}
	return c.Close()
}
