package cursor

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Redis stores watermarks as plain integer keys with a rolling TTL.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) (int64, bool, error) {
	v, err := r.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value int64) error {
	return r.client.Set(ctx, key, value, TTL).Err()
}
