// Package session tracks revoked session tokens in Redis.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "chat:revoked:"

// RevocationStore remembers signed-out token ids until the token would have
// expired anyway.
type RevocationStore struct {
	client *redis.Client
	prefix string
}

func NewRevocationStore(client *redis.Client, keyPrefix string) *RevocationStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RevocationStore{
		client: client,
		prefix: keyPrefix,
	}
}

// Revoke marks tokenID as signed out for ttl. A non-positive ttl is a no-op
// since the token is already expired.
func (s *RevocationStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.key(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

func (s *RevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists error: %w", err)
	}
	return n > 0, nil
}

func (s *RevocationStore) key(tokenID string) string {
	return s.prefix + tokenID
}
