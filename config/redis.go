package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

// RedisOptions reads REDIS_ADDR, REDIS_PASSWORD and REDIS_DB. An invalid
// database number falls back to 0.
func RedisOptions() *redis.Options {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	dbNum := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if v, e := strconv.Atoi(dbStr); e == nil {
			dbNum = v
		}
	}
	return &redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       dbNum,
	}
}

// ConnectRedis initializes the singleton Redis client. It returns nil without
// an error when REDIS_ENABLED is not "true" or under APPENV=test; callers
// treat a nil client as "redis unavailable" and fall back to the database.
func ConnectRedis() (*redis.Client, error) {
	var err error
	redisOnce.Do(func() {
		if IsTest() || os.Getenv("REDIS_ENABLED") != "true" {
			return
		}

		opts := RedisOptions()
		rdb := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err = rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			redisClient = nil
			err = fmt.Errorf("redis ping failed: %w", err)
			return
		}

		redisClient = rdb
		log.Printf("Connected to Redis at %s (db %d)", opts.Addr, opts.DB)
	})
	return redisClient, err
}

// GetRedisClient returns the initialized Redis client, or nil.
func GetRedisClient() *redis.Client {
	return redisClient
}
