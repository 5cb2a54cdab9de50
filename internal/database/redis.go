package database

import (
	"context"
	"log"

	"github.com/go-redis/redis/v8"

	"github.com/campusledger/backend/internal/config"
)

// InitRedis initializes Redis client with config. It returns nil when Redis is
// disabled or unreachable; callers treat a nil client as "feature off".
func InitRedis(cfg config.RedisConfig) *redis.Client {
	if !cfg.Enabled {
		log.Println("[REDIS] Disabled by configuration")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("[REDIS] Connection failed, continuing without Redis: %v", err)
		rdb.Close()
		return nil
	}

	log.Println("[REDIS] Connection established")
	return rdb
}
