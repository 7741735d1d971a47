package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"educonnect/utils"

	"github.com/go-redis/redis/v8"
)

// Store persists sessions with a TTL.
type Store interface {
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// RedisStore keeps sessions as JSON under "session:<id>". Identity tokens
// are encrypted when the store is built with a secret.
type RedisStore struct {
	client *redis.Client
	sealer *sealer
}

func NewRedisStore(client *redis.Client, secret []byte) (*RedisStore, error) {
	store := &RedisStore{client: client}
	if len(secret) > 0 {
		s, err := newSealer(secret)
		if err != nil {
			return nil, err
		}
		store.sealer = s
	}
	return store, nil
}

func key(id string) string { return utils.SessionPrefix + id }

// Save writes the session and (re)sets its TTL.
func (r *RedisStore) Save(ctx context.Context, s *Session, ttl time.Duration) error {
	if r.sealer != nil {
		sealed, err := r.sealer.sealTokens(s)
		if err != nil {
			return fmt.Errorf("failed to seal session tokens: %w", err)
		}
		s = sealed
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.client.Set(ctx, key(s.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if r.sealer != nil {
		if err := r.sealer.openTokens(&s); err != nil {
			return nil, fmt.Errorf("failed to open session tokens: %w", err)
		}
	}
	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, key(id)).Err()
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
