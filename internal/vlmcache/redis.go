package vlmcache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisConfig locates the Redis server backing the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// Redis stores completions in Redis with an optional TTL.
type Redis struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("vlmcache: redis address required")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisWithClient(rdb, cfg), nil
}

func newRedisWithClient(rdb *goredis.Client, cfg RedisConfig) *Redis {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "tactica:vlm:"
	}
	return &Redis{rdb: rdb, prefix: prefix, ttl: cfg.TTL}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.rdb.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.rdb.Set(ctx, r.prefix+key, value, r.ttl).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
