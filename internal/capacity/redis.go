package capacity

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// debitScript decrements the counter only when it exists and holds enough
// vacancies, so a debit can never drive the counter negative.
var debitScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if not current then
	return -1
end
current = tonumber(current)
local n = tonumber(ARGV[1])
if current < n then
	return -1
end
return redis.call("DECRBY", KEYS[1], n)
`)

// RedisStore keeps counters in Redis so several API instances can share one
// capacity view. Atomicity of Debit relies on the script running as a unit.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "capacity:"}
}

func (s *RedisStore) key(k Key) string {
	return s.prefix + k.String()
}

func (s *RedisStore) Vacancies(ctx context.Context, key Key) (int, bool, error) {
	n, err := s.client.Get(ctx, s.key(key)).Int()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get vacancies %s: %w", key, err)
	}
	return n, true, nil
}

func (s *RedisStore) SetBaseline(ctx context.Context, key Key, n int) error {
	if err := s.client.Set(ctx, s.key(key), n, 0).Err(); err != nil {
		return fmt.Errorf("set baseline %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Debit(ctx context.Context, key Key, n int) error {
	res, err := debitScript.Run(ctx, s.client, []string{s.key(key)}, n).Int64()
	if err != nil {
		return fmt.Errorf("debit %s: %w", key, err)
	}
	if res < 0 {
		return ErrInsufficient
	}
	return nil
}

func (s *RedisStore) Credit(ctx context.Context, key Key, n int) error {
	if err := s.client.IncrBy(ctx, s.key(key), int64(n)).Err(); err != nil {
		return fmt.Errorf("credit %s: %w", key, err)
	}
	return nil
}
