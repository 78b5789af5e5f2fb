package store

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/odoodash/gateway/core"
	"github.com/odoodash/gateway/ports"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis implementation of the ChallengeStore interface.
// Expiry is delegated to Redis TTLs; GETDEL makes check-and-consume a single
// atomic step. A Consume with the right id but wrong secret burns the entry,
// which stays on the safe side of the at-most-once guarantee.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a new Redis-backed challenge store.
func NewRedisStore(client *redis.Client, ttl time.Duration) ports.ChallengeStore {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &RedisStore{
		client: client,
		prefix: "gateway:challenge:",
		ttl:    ttl,
	}
}

// Issue generates a fresh single-use token "id:secret".
func (s *RedisStore) Issue(ctx context.Context) (string, error) {
	id, err := randomHex(16)
	if err != nil {
		return "", err
	}
	secret, err := randomHex(32)
	if err != nil {
		return "", err
	}

	if err := s.client.Set(ctx, s.prefix+id, secret, s.ttl).Err(); err != nil {
		return "", core.ErrStoreOperationFailed
	}

	return id + Delimiter + secret, nil
}

// Consume validates a token and removes it in the same atomic step.
func (s *RedisStore) Consume(ctx context.Context, token string) (bool, error) {
	id, secret, ok := strings.Cut(token, Delimiter)
	if !ok || id == "" || secret == "" {
		return false, nil
	}

	stored, err := s.client.GetDel(ctx, s.prefix+id).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, core.ErrStoreOperationFailed
	}

	return subtle.ConstantTimeCompare([]byte(stored), []byte(secret)) == 1, nil
}
