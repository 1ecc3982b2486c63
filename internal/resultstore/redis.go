package resultstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maumercado/flowcore/internal/engine"
	"github.com/maumercado/flowcore/internal/logger"
)

const redisKeyPrefix = "flowcore:results:"

// RedisStore is a cache-backed result store: reads hit Redis directly
// and writes set a TTL from the caller's expiresAt, the same
// fast-KV role go-redis plays in the teacher's queue package, just
// without the stream/consumer-group machinery that package needs for
// queueing and this one doesn't.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client. Close closes that
// client, so it must not be shared with code that outlives the store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key(cacheKey string) string {
	return redisKeyPrefix + cacheKey
}

func (s *RedisStore) Get(ctx context.Context, key string) (engine.Result, bool, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err == redis.Nil {
		return engine.Result{}, false, nil
	}
	if err != nil {
		return engine.Result{}, false, fmt.Errorf("resultstore: redis get %s: %w", key, err)
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return engine.Result{}, false, fmt.Errorf("resultstore: decode %s: %w", key, err)
	}

	logger.Debug().Str("cache_key", key).Msg("result store cache hit")
	return engine.Result{Value: value, Retrieved: true}, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, result engine.Result, expiresAt *time.Time) error {
	data, err := json.Marshal(result.Value)
	if err != nil {
		return fmt.Errorf("resultstore: encode %s: %w", key, err)
	}

	var ttl time.Duration
	if expiresAt != nil {
		ttl = time.Until(*expiresAt)
		if ttl <= 0 {
			return nil
		}
	}

	if err := s.client.Set(ctx, s.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("resultstore: redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
