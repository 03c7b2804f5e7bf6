// Package cache provides a small byte cache backed by Redis, with a no-op
// fallback when no Redis address is configured.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/owlbill/owlbill/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ErrMiss is returned when a key is absent.
var ErrMiss = errors.New("cache_miss")

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type Params struct {
	fx.In

	Config    config.Config
	Log       *zap.Logger
	Lifecycle fx.Lifecycle
}

func New(p Params) Cache {
	if p.Config.RedisAddr == "" {
		p.Log.Named("cache").Info("redis not configured, caching disabled")
		return noopCache{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     p.Config.RedisAddr,
		Password: p.Config.RedisPassword,
	})

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return &redisCache{client: client}
}

type redisCache struct {
	client *redis.Client
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, err
	}
	return value, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

type noopCache struct{}

func (noopCache) Get(ctx context.Context, key string) ([]byte, error) { return nil, ErrMiss }

func (noopCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (noopCache) Delete(ctx context.Context, key string) error { return nil }

var Module = fx.Module("providers.cache",
	fx.Provide(New),
)
