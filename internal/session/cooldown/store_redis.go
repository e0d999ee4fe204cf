package cooldown

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"turnstile/internal/session/models"
)

const cooldownKeyPrefix = "cooldown:net:"

// RedisStore keeps one cooldown window per network address with a TTL, so
// elapsed windows vanish without a sweeper.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func cooldownKey(networkAddress string) string {
	return cooldownKeyPrefix + networkAddress
}

func (s *RedisStore) Get(ctx context.Context, networkAddress string) (*models.CooldownWindow, error) {
	data, err := s.client.Get(ctx, cooldownKey(networkAddress)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cooldown window: %w", err)
	}

	var window models.CooldownWindow
	if err := json.Unmarshal(data, &window); err != nil {
		return nil, fmt.Errorf("decode cooldown window: %w", err)
	}
	return &window, nil
}

func (s *RedisStore) Put(ctx context.Context, networkAddress, identityID string, until time.Time) error {
	window := models.CooldownWindow{
		NetworkAddress: networkAddress,
		IdentityID:     identityID,
		Until:          until,
	}
	data, err := json.Marshal(&window)
	if err != nil {
		return fmt.Errorf("encode cooldown window: %w", err)
	}

	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, cooldownKey(networkAddress), data, ttl).Err(); err != nil {
		return fmt.Errorf("put cooldown window: %w", err)
	}
	return nil
}
