package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// TypedStore stores values of type V as JSON under "prefix:key".
type TypedStore[V any] struct {
	client    *Client
	keyPrefix string
}

// NewTypedStore creates a store. An empty prefix stores keys as given.
func NewTypedStore[V any](client *Client, keyPrefix string) *TypedStore[V] {
	return &TypedStore[V]{client: client, keyPrefix: keyPrefix}
}

func (s *TypedStore[V]) fullKey(key string) string {
	if s.keyPrefix == "" {
		return key
	}
	return s.keyPrefix + ":" + key
}

// Load returns (nil, nil) when key is absent.
func (s *TypedStore[V]) Load(ctx context.Context, key string) (*V, error) {
	raw, err := s.client.Get(ctx, s.fullKey(key))
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: load %q: %w", key, err)
	}
	var v V
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("redis: decode %q: %w", key, err)
	}
	return &v, nil
}

// Save stores v with ttl; 0 means no expiry.
func (s *TypedStore[V]) Save(ctx context.Context, key string, v *V, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis: encode %q: %w", key, err)
	}
	if err := s.client.Set(ctx, s.fullKey(key), data, ttl); err != nil {
		return fmt.Errorf("redis: save %q: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *TypedStore[V]) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.fullKey(key)); err != nil {
		return fmt.Errorf("redis: delete %q: %w", key, err)
	}
	return nil
}
