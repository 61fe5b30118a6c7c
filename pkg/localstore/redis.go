package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pkgredis "github.com/angelmondragon/pdv-terminal/pkg/redis"
)

type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	StateKey(name string) string
	Ping(ctx context.Context) error
}

// Redis stores each envelope as a JSON string without expiry.
type Redis struct {
	client redisStore
}

func NewRedis(client *pkgredis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Read(ctx context.Context, name string) (Envelope, error) {
	raw, err := r.client.Get(ctx, r.client.StateKey(name))
	if errors.Is(err, pkgredis.ErrNotFound) {
		return Envelope{}, ErrNotFound
	}
	if err != nil {
		return Envelope{}, err
	}
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrIncompatible, err)
	}
	return env, nil
}

func (r *Redis) Write(ctx context.Context, name string, env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.client.StateKey(name), string(raw), 0)
}

func (r *Redis) Delete(ctx context.Context, name string) error {
	return r.client.Del(ctx, r.client.StateKey(name))
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}
