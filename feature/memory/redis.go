package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "skein:memory:"

// RedisStoreOptions configure NewRedisStore.
type RedisStoreOptions struct {
	// KeyPrefix namespaces the per-subject hashes.
	KeyPrefix string
	// TTL expires a subject's facts after inactivity; 0 keeps them forever.
	TTL time.Duration
}

// RedisStore persists facts in one Redis hash per subject, with concepts as
// hash fields.
type RedisStore struct {
	client redis.UniversalClient
	opts   RedisStoreOptions
}

// NewRedisStore creates a store over an existing Redis client.
func NewRedisStore(client redis.UniversalClient, optFns ...func(o *RedisStoreOptions)) *RedisStore {
	opts := RedisStoreOptions{KeyPrefix: defaultKeyPrefix}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.KeyPrefix == "" {
		opts.KeyPrefix = defaultKeyPrefix
	}

	return &RedisStore{client: client, opts: opts}
}

func (s *RedisStore) key(subject string) string {
	return s.opts.KeyPrefix + subject
}

// SaveFact implements Store.
func (s *RedisStore) SaveFact(ctx context.Context, fact Fact) error {
	if fact.Subject == "" || fact.Concept == "" {
		return fmt.Errorf("memory: fact needs a subject and a concept")
	}

	if fact.CreatedAt.IsZero() {
		fact.CreatedAt = time.Now().UTC()
	}

	raw, err := json.Marshal(fact)
	if err != nil {
		return fmt.Errorf("memory: encode fact: %w", err)
	}

	key := s.key(fact.Subject)

	if err := s.client.HSet(ctx, key, fact.Concept, raw).Err(); err != nil {
		return fmt.Errorf("memory: save fact: %w", err)
	}

	if s.opts.TTL > 0 {
		if err := s.client.Expire(ctx, key, s.opts.TTL).Err(); err != nil {
			return fmt.Errorf("memory: refresh ttl: %w", err)
		}
	}

	return nil
}

// Facts implements Store.
func (s *RedisStore) Facts(ctx context.Context, subject string) ([]Fact, error) {
	raw, err := s.client.HGetAll(ctx, s.key(subject)).Result()
	if err != nil {
		return nil, fmt.Errorf("memory: load facts: %w", err)
	}

	out := make([]Fact, 0, len(raw))
	for _, v := range raw {
		var f Fact
		if err := json.Unmarshal([]byte(v), &f); err != nil {
			return nil, fmt.Errorf("memory: decode fact: %w", err)
		}
		out = append(out, f)
	}

	sortFacts(out)

	return out, nil
}

// Clear implements Store.
func (s *RedisStore) Clear(ctx context.Context, subject string) error {
	if err := s.client.Del(ctx, s.key(subject)).Err(); err != nil {
		return fmt.Errorf("memory: clear facts: %w", err)
	}

	return nil
}
