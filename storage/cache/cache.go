// Package cache implements placement.Cache on top of redis.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/trezcool/masomo-lms/core"
)

const (
	keyPrefix   = "lms:"
	dialTimeout = 5 * time.Second
)

type RedisCache struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewRedisCache connects to redis and fails fast when the server cannot be reached.
func NewRedisCache(conf core.RedisConfig) (*RedisCache, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        conf.Addr,
		Password:    conf.Password,
		DB:          conf.DB,
		DialTimeout: dialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "redis ping")
	}
	return &RedisCache{rdb: rdb, ttl: conf.TTL}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err == goredis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "redis get %s", key)
	}
	if err = json.Unmarshal(raw, dst); err != nil {
		// stale or foreign payload; treat as a miss
		return false, nil
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return errors.Wrapf(c.rdb.Set(ctx, keyPrefix+key, raw, c.ttl).Err(), "redis set %s", key)
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, k := range keys {
		prefixed = append(prefixed, keyPrefix+k)
	}
	return errors.Wrap(c.rdb.Del(ctx, prefixed...).Err(), "redis del")
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

// Nop never stores anything: every Get is a miss.
type Nop struct{}

func (*Nop) Get(context.Context, string, interface{}) (bool, error) { return false, nil }
func (*Nop) Set(context.Context, string, interface{}) error         { return nil }
func (*Nop) Delete(context.Context, ...string) error                { return nil }
func (*Nop) Close() error                                           { return nil }
