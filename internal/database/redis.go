package database

import (
	"context"
	"log"
	"net"

	"github.com/go-redis/redis/v8"
	"github.com/readypay/backend/internal/config"
)

// InitRedis returns nil when Redis is not configured or not reachable; callers
// then run without the login limiter and token revocation.
func InitRedis(cfg config.RedisConfig) *redis.Client {
	if cfg.Host == "" {
		log.Println("Redis not configured, continuing without Redis")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("Redis connection failed, continuing without Redis: %v", err)
		rdb.Close()
		return nil
	}

	log.Println("Redis connection established")
	return rdb
}
