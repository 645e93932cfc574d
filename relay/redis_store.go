package relay

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOutcomeStore shares outcomes between processes. It implements the same
// first-write-wins contract as MemoryOutcomeStore via SetNX.
type RedisOutcomeStore struct {
	client         *redis.Client
	keyPrefix      string
	expireDuration time.Duration
}

func NewRedisOutcomeStore(client *redis.Client, keyPrefix string, expireDuration time.Duration) *RedisOutcomeStore {
	return &RedisOutcomeStore{
		client:         client,
		keyPrefix:      keyPrefix,
		expireDuration: expireDuration,
	}
}

func (s *RedisOutcomeStore) Record(ctx context.Context, outcome Outcome) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return err
	}
	return s.client.SetNX(ctx, s.keyPrefix+outcome.Key, data, s.expireDuration).Err()
}

func (s *RedisOutcomeStore) Get(ctx context.Context, key string) (Outcome, bool, error) {
	data, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Outcome{}, false, nil
	}
	if err != nil {
		return Outcome{}, false, err
	}
	var outcome Outcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		return Outcome{}, false, err
	}
	return outcome, true, nil
}

// DeleteAll deletes all the keys in the store. It can be very slow and should
// only be used for testing.
func (s *RedisOutcomeStore) DeleteAll(ctx context.Context) error {
	keys, err := s.client.Keys(ctx, s.keyPrefix+"*").Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}
