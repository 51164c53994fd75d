package router

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/redis"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// limiterDatabase keeps limiter keys apart from the cache (DB 0).
const limiterDatabase = 2

// newLimiterStorage shares limiter counters across instances through the
// cache server. It returns nil, which selects fiber's in-memory storage, when
// no cache is configured or reachable.
func newLimiterStorage(client *goredis.Client, log *zap.Logger) fiber.Storage {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("rate limiter falling back to in-memory storage", zap.Error(err))
		return nil
	}

	opts := client.Options()
	host := "localhost"
	port := 6379
	if h, p, err := net.SplitHostPort(opts.Addr); err == nil {
		host = h
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: opts.Password,
		Database: limiterDatabase,
		Reset:    false,
	})
}
