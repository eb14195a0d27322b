package prefs

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisHashKey holds every preference as one hash field.
const RedisHashKey = "chatbot:prefs"

type RedisKV struct {
	client *redis.Client
}

var _ KV = &RedisKV{}

func NewRedisKV(addr string) (*RedisKV, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis prefs: empty address")
	}
	return &RedisKV{client: redis.NewClient(&redis.Options{Addr: addr})}, nil
}

func (r *RedisKV) GetBool(ctx context.Context, key string) (bool, bool, error) {
	raw, err := r.client.HGet(ctx, RedisHashKey, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, errors.Wrapf(err, "redis prefs: get %s", key)
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, errors.Wrapf(err, "redis prefs: decode %s", key)
	}
	return v, true, nil
}

func (r *RedisKV) SetBool(ctx context.Context, key string, value bool) error {
	err := r.client.HSet(ctx, RedisHashKey, key, strconv.FormatBool(value)).Err()
	return errors.Wrapf(err, "redis prefs: set %s", key)
}

func (r *RedisKV) Close() error {
	return r.client.Close()
}
