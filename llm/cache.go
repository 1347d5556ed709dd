package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/kbukum/stepflow/logger"
)

// ResponseStore persists responses by key. redis.TypedStore satisfies it.
type ResponseStore interface {
	Load(ctx context.Context, key string) (*CompletionResponse, error)
	Save(ctx context.Context, key string, resp *CompletionResponse, ttl time.Duration) error
}

// WithCache serves repeated identical requests from store. scope names the
// backend c talks to, usually "provider/model", and is part of every key.
// Store failures are logged and fall through to c.
func WithCache(c Completer, store ResponseStore, scope string, ttl time.Duration, log *logger.Logger) Completer {
	if log == nil {
		log = logger.Nop()
	}
	return &cachedCompleter{
		next:  c,
		store: store,
		scope: scope,
		ttl:   ttl,
		log:   log.WithComponent("llm.cache"),
	}
}

type cachedCompleter struct {
	next  Completer
	store ResponseStore
	scope string
	ttl   time.Duration
	log   *logger.Logger
}

func (c *cachedCompleter) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	key, err := CacheKey(c.scope, req)
	if err != nil {
		return c.next.Complete(ctx, req)
	}

	cached, err := c.store.Load(ctx, key)
	if err != nil {
		c.log.Warn("cache load failed", logger.ErrorFields("load", err))
	} else if cached != nil {
		c.log.Debug("cache hit", logger.Fields("key", key))
		return cached, nil
	}

	resp, err := c.next.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := c.store.Save(ctx, key, resp, c.ttl); err != nil {
		c.log.Warn("cache save failed", logger.ErrorFields("save", err))
	}
	return resp, nil
}

// CacheKey is the hex SHA-256 of scope followed by the request's JSON
// encoding.
func CacheKey(scope string, req CompletionRequest) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(scope))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
