package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"turnstile/internal/session/models"
	"turnstile/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix = "session:identity:"

	// Expired sessions are kept around past their logical expiry so that a
	// validation attempt can still distinguish EXPIRED from NO_SESSION
	// before Redis reclaims the key.
	expiryGrace = time.Hour

	// Bounded optimistic-lock retries on WATCH conflicts.
	executeMaxRetries = 3
)

// RedisStore persists sessions in Redis, one JSON value per identity with a
// TTL. Read-modify-write goes through WATCH-based optimistic transactions so
// concurrent writers abort-and-retry instead of clobbering each other.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(identityID string) string {
	return sessionKeyPrefix + identityID
}

func sessionTTL(session *models.Session, now time.Time) time.Duration {
	ttl := session.ExpiresAt.Sub(now) + expiryGrace
	if ttl <= 0 {
		ttl = expiryGrace
	}
	return ttl
}

func (s *RedisStore) Get(ctx context.Context, identityID string) (*models.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(identityID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) Upsert(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ttl := sessionTTL(session, time.Now())
	if err := s.client.Set(ctx, sessionKey(session.IdentityID), data, ttl).Err(); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// Execute runs validate then mutate against the identity's session inside a
// WATCH transaction, retrying a bounded number of times on conflict. The TTL
// of the key is recomputed from the (possibly mutated) expiry so an extension
// also stretches the Redis-side lifetime.
func (s *RedisStore) Execute(ctx context.Context, identityID string, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error) {
	key := sessionKey(identityID)
	var result *models.Session

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}

		var session models.Session
		if err := json.Unmarshal(data, &session); err != nil {
			return fmt.Errorf("decode session: %w", err)
		}

		if validate != nil {
			if err := validate(&session); err != nil {
				return err
			}
		}
		mutate(&session)

		updated, err := json.Marshal(&session)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, sessionTTL(&session, time.Now()))
			return nil
		})
		if err != nil {
			return err
		}

		result = &session
		return nil
	}

	var err error
	for attempt := 0; attempt < executeMaxRetries; attempt++ {
		err = s.client.Watch(ctx, txn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *RedisStore) Delete(ctx context.Context, identityID string) error {
	if err := s.client.Del(ctx, sessionKey(identityID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
