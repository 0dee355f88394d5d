package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	periodKeyPrefix = "tillbook:period:"
	periodIndexKey  = "tillbook:periods"
)

// Redis stores period blobs under tillbook:period:<id> and keeps a set of
// known ids for listing.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps a connected client, see platform/cache.New.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, id string) ([]byte, error) {
	blob, err := r.client.Get(ctx, periodKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: redis get %s: %w", id, err)
	}
	return blob, nil
}

func (r *Redis) Put(ctx context.Context, id string, blob []byte) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, periodKeyPrefix+id, blob, 0)
	pipe.SAdd(ctx, periodIndexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store: redis put %s: %w", id, err)
	}
	return nil
}

func (r *Redis) List(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, periodIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("store: redis list: %w", err)
	}
	return ids, nil
}
