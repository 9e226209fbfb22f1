package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/farmer-dashboard/internal/config"
)

// ErrRedisNotConfigured is returned when no client is available.
var ErrRedisNotConfigured = errors.New("redis client not configured")

const redisPingTimeout = 3 * time.Second

// Redis carries the audit stream client. Reachable records the startup ping
// so callers can skip the stream sink when Redis is down.
type Redis struct {
	client    *redis.Client
	reachable bool
}

// NewRedis builds a client and pings it once. An unreachable Redis is logged,
// not returned as an error.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	r := &Redis{client: redis.NewClient(redisOptions(cfg))}

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := r.client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable; audit stream disabled", zap.String("addr", cfg.Addr), zap.Error(err))
		return r
	}
	r.reachable = true
	logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return r
}

func redisOptions(cfg config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  redisPingTimeout,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
}

// Client returns the underlying client.
func (r *Redis) Client() *redis.Client {
	if r == nil {
		return nil
	}
	return r.client
}

func (r *Redis) Reachable() bool {
	return r != nil && r.reachable
}

func (r *Redis) Ping(ctx context.Context) error {
	if r.Client() == nil {
		return ErrRedisNotConfigured
	}
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() {
	if r.Client() != nil {
		_ = r.client.Close()
	}
}
