package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/ledger"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the snapshot under a single Redis key with no expiry.
type RedisStore struct {
	redis redis.Cmdable
	key   string
}

// NewRedisStore creates a store writing to key, or to the default state
// key when key is empty.
func NewRedisStore(client redis.Cmdable, key string) *RedisStore {
	if key == "" {
		key = domain.DefaultStateKey
	}
	return &RedisStore{redis: client, key: key}
}

func (r *RedisStore) Load(ctx context.Context) (ledger.State, bool, error) {
	val, err := r.redis.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return ledger.NewState(), false, nil
	}
	if err != nil {
		return ledger.NewState(), false, fmt.Errorf("redis get snapshot: %w", err)
	}
	s, err := Decode([]byte(val))
	if err != nil {
		return ledger.NewState(), false, err
	}
	return s, true, nil
}

func (r *RedisStore) Save(ctx context.Context, state ledger.State) error {
	payload, err := Encode(state)
	if err != nil {
		return err
	}
	if err := r.redis.Set(ctx, r.key, string(payload), 0).Err(); err != nil {
		return fmt.Errorf("redis set snapshot: %w", err)
	}
	return nil
}

// Invalidate deletes the snapshot key.
func (r *RedisStore) Invalidate(ctx context.Context) error {
	if err := r.redis.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("invalidate redis snapshot: %w", err)
	}
	return nil
}
