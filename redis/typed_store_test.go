package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/stepflow/logger"
	"github.com/kbukum/stepflow/observability"
)

type cachedReply struct {
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)
	client, err := New(Config{Enabled: true, Addr: mini.Addr()}, logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, mini
}

func TestNew_Disabled(t *testing.T) {
	if _, err := New(Config{}, logger.Nop()); err == nil {
		t.Fatal("expected error for disabled config")
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Addr != "localhost:6379" || cfg.KeyPrefix != "stepflow" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.DialTimeout != 5*time.Second {
		t.Errorf("expected 5s dial timeout, got %v", cfg.DialTimeout)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{Enabled: true, Addr: "x:1", DB: -1}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected negative db to fail")
	}
	cfg.DB = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_PingAndHealth(t *testing.T) {
	client, mini := newTestClient(t)
	ctx := context.Background()

	if err := client.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if h := client.CheckHealth(ctx); h.Status != observability.HealthStatusUp {
		t.Errorf("expected up, got %s", h.Status)
	}

	mini.Close()
	if h := client.CheckHealth(ctx); h.Status != observability.HealthStatusDegraded {
		t.Errorf("expected degraded after shutdown, got %s", h.Status)
	}
}

func TestClient_CloseTwice(t *testing.T) {
	client, _ := newTestClient(t)
	if err := client.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestTypedStore_SaveLoad(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewTypedStore[cachedReply](client, "test")
	ctx := context.Background()

	in := cachedReply{Content: "hi", Tags: []string{"a", "b"}}
	if err := store.Save(ctx, "k1", &in, 0); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx, "k1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || got.Content != "hi" || len(got.Tags) != 2 {
		t.Fatalf("unexpected value: %+v", got)
	}
}

func TestTypedStore_LoadMissing(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewTypedStore[cachedReply](client, "test")

	got, err := store.Load(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing key, got %+v", got)
	}
}

func TestTypedStore_LoadCorrupt(t *testing.T) {
	client, mini := newTestClient(t)
	store := NewTypedStore[cachedReply](client, "test")
	if err := mini.Set("test:bad", "{not json"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(context.Background(), "bad"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestTypedStore_Delete(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewTypedStore[cachedReply](client, "test")
	ctx := context.Background()

	if err := store.Save(ctx, "k1", &cachedReply{Content: "x"}, 0); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := store.Load(ctx, "k1")
	if err != nil || got != nil {
		t.Fatalf("expected nil after delete, got %+v, err %v", got, err)
	}
}

func TestTypedStore_TTL(t *testing.T) {
	client, mini := newTestClient(t)
	store := NewTypedStore[cachedReply](client, "test")
	ctx := context.Background()

	if err := store.Save(ctx, "k1", &cachedReply{Content: "x"}, 2*time.Second); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Load(ctx, "k1"); got == nil {
		t.Fatal("expected value before TTL")
	}

	mini.FastForward(3 * time.Second)

	got, err := store.Load(ctx, "k1")
	if err != nil {
		t.Fatalf("Load after TTL: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil after expiry, got %+v", got)
	}
}

func TestTypedStore_KeyPrefix(t *testing.T) {
	client, mini := newTestClient(t)
	ctx := context.Background()

	prefixed := NewTypedStore[cachedReply](client, "llm")
	if err := prefixed.Save(ctx, "k1", &cachedReply{Content: "x"}, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := mini.Get("llm:k1"); err != nil {
		t.Fatalf("expected prefixed key, err: %v", err)
	}

	bare := NewTypedStore[cachedReply](client, "")
	if err := bare.Save(ctx, "bare-key", &cachedReply{Content: "x"}, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := mini.Get("bare-key"); err != nil {
		t.Fatalf("expected bare key, err: %v", err)
	}
}
