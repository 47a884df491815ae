package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/repository"
	"github.com/redis/go-redis/v9"
)

const (
	cartKeyPrefix = "cart:"
)

type cartStore struct {
	client    *redis.Client
	sessionID string
	ttl       time.Duration
}

// NewCartStore returns a LocalCartStore backed by a single redis key,
// namespaced by the anonymous session identifier.
func NewCartStore(client *redis.Client, sessionID string, ttl time.Duration) repository.LocalCartStore {
	return &cartStore{
		client:    client,
		sessionID: sessionID,
		ttl:       ttl,
	}
}

func (s *cartStore) cartKey() string {
	return cartKeyPrefix + s.sessionID
}

func (s *cartStore) Load(ctx context.Context) ([]entity.CartItem, error) {
	val, err := s.client.Get(ctx, s.cartKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get cart %s from redis: %w", s.cartKey(), err)
	}

	var items []entity.CartItem
	if err := json.Unmarshal([]byte(val), &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart data for %s: %w", s.cartKey(), repository.ErrCorruptData)
	}
	return items, nil
}

func (s *cartStore) Save(ctx context.Context, items []entity.CartItem) error {
	if s.sessionID == "" {
		return errors.New("cannot save cart with empty session ID")
	}

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal cart for %s: %w", s.cartKey(), err)
	}

	if err := s.client.Set(ctx, s.cartKey(), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cart %s to redis: %w", s.cartKey(), err)
	}
	return nil
}

func (s *cartStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.cartKey()).Err(); err != nil {
		return fmt.Errorf("failed to delete cart %s from redis: %w", s.cartKey(), err)
	}
	return nil
}
