package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions addresses the Redis instance that backs sessions and the
// friend-request rate limiter. Relationship data never lives there.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// PoolSize defaults to 10 connections.
	PoolSize int
}

func (o RedisOptions) client() *redis.Options {
	poolSize := o.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}
	return &redis.Options{
		Addr:         o.Addr,
		Password:     o.Password,
		DB:           o.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     poolSize,
		MinIdleConns: max(1, poolSize/4),
	}
}

type RedisDB struct {
	Client *redis.Client
}

var (
	dialRedis = redis.NewClient
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return client.Ping(ctx).Err()
	}
)

// NewRedisDB connects and verifies the instance answers PING within five
// seconds.
func NewRedisDB(ctx context.Context, opts RedisOptions) (*RedisDB, error) {
	client := dialRedis(opts.client())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pingRedis(pingCtx, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis at %s unreachable: %w", opts.Addr, err)
	}
	return &RedisDB{Client: client}, nil
}

// Ping lets RedisDB serve as a health check.
func (r *RedisDB) Ping(ctx context.Context) error {
	return pingRedis(ctx, r.Client)
}

func (r *RedisDB) Close() error {
	if r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
