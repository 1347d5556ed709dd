package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"

	apperrors "github.com/kbukum/stepflow/errors"
	"github.com/kbukum/stepflow/config"
	"github.com/kbukum/stepflow/history"
	"github.com/kbukum/stepflow/llm"
	"github.com/kbukum/stepflow/logger"
	"github.com/kbukum/stepflow/observability"
	"github.com/kbukum/stepflow/redis"
)

type countingLLM struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingLLM) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &llm.CompletionResponse{Content: "Fact for: " + req.UserText()}, nil
}

func testConfig() *Config {
	cfg := &Config{}
	cfg.LLM.APIKey = "test-key"
	cfg.History = history.Config{Enabled: true, DSN: ":memory:"}
	return cfg
}

func newTestApp(t *testing.T, cfg *Config, c llm.Completer) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, WithCompleter(c), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func TestConfig_Defaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "from-env")
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("expected anthropic provider, got %q", cfg.LLM.Provider)
	}
	if cfg.LLM.APIKey != "from-env" {
		t.Errorf("expected key from ANTHROPIC_API_KEY, got %q", cfg.LLM.APIKey)
	}
	if cfg.Name != Name || cfg.Observability.ServiceName != Name {
		t.Errorf("unexpected names: %q / %q", cfg.Name, cfg.Observability.ServiceName)
	}
	if cfg.Server.Port != 8080 || cfg.CacheTTL == 0 {
		t.Errorf("unexpected defaults: port=%d ttl=%s", cfg.Server.Port, cfg.CacheTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults with a key should validate: %v", err)
	}
}

func TestConfig_OpenAIKeyFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg := Config{}
	cfg.LLM.Provider = "OpenAI"
	cfg.ApplyDefaults()
	if cfg.LLM.Provider != "openai" || cfg.LLM.APIKey != "sk-test" {
		t.Errorf("unexpected llm section: %+v", cfg.LLM)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing api key", func(c *Config) { c.LLM.APIKey = "" }},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "cohere" }},
		{"bad environment", func(c *Config) { c.Environment = "moon" }},
		{"bad server port", func(c *Config) { c.Server.Port = -1 }},
		{"bad history log level", func(c *Config) { c.History.LogLevel = "loud" }},
		{"temperature out of range", func(c *Config) { c.LLM.Temperature = 3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.ApplyDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !apperrors.HasCode(err, apperrors.ErrCodeConfiguration) {
				t.Fatalf("expected CONFIGURATION_ERROR, got %v", err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stepflow.yml")
	yaml := "environment: staging\nllm:\n  provider: openai\n  model: gpt-4o\nhistory:\n  enabled: true\n  dsn: runs.db\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("STEPFLOW_LLM_API_KEY", "sk-env")

	cfg, err := LoadConfig(config.WithConfigFile(path), config.WithEnvFile(filepath.Join(dir, "none.env")))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Environment != "staging" || cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-4o" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.LLM.APIKey != "sk-env" {
		t.Errorf("expected api key from env, got %q", cfg.LLM.APIKey)
	}
	if !cfg.History.Enabled || cfg.History.DSN != "runs.db" {
		t.Errorf("unexpected history: %+v", cfg.History)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := New(context.Background(), &Config{}, WithLogger(logger.Nop()))
	if !apperrors.HasCode(err, apperrors.ErrCodeConfiguration) {
		t.Fatalf("expected CONFIGURATION_ERROR, got %v", err)
	}
}

func TestNew_BuildsAdapterFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.History.Enabled = false
	a, err := New(context.Background(), cfg, WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close(context.Background())

	comps := a.Summary().Components()
	var llmLine string
	for _, c := range comps {
		if c.Name == "llm" {
			llmLine = c.Details
		}
	}
	if llmLine != "anthropic/claude-3-5-sonnet-20241022" {
		t.Errorf("unexpected llm summary %q", llmLine)
	}
}

func TestWorkflows(t *testing.T) {
	a := newTestApp(t, testConfig(), &countingLLM{})
	var names []string
	for _, info := range a.Workflows() {
		names = append(names, info.Name)
	}
	if strings.Join(names, ",") != "greeting,hello,research,scrape" {
		t.Errorf("unexpected workflows %v", names)
	}
}

func TestRun_SavesHistory(t *testing.T) {
	stub := &countingLLM{}
	a := newTestApp(t, testConfig(), stub)
	ctx := context.Background()

	run, err := a.Run(ctx, "hello", "Ada")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(run.Report, "Hello Ada!") {
		t.Errorf("unexpected report %q", run.Report)
	}
	if run.Workflow != "hello" || run.Steps != 1 || run.Status != "completed" {
		t.Errorf("unexpected run %+v", run)
	}

	runs, err := a.ListRuns(ctx, 10)
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListRuns = %d runs, %v", len(runs), err)
	}
	got, err := a.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Report != run.Report || !strings.Contains(string(got.Record), `"name":"Ada"`) {
		t.Errorf("unexpected stored run %+v", got)
	}
}

func TestRun_Errors(t *testing.T) {
	ctx := context.Background()

	a := newTestApp(t, testConfig(), &countingLLM{})
	if _, err := a.Run(ctx, "nope", ""); !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
	if _, err := a.Run(ctx, "research", "  "); !apperrors.HasCode(err, apperrors.ErrCodeMissingField) {
		t.Errorf("expected MISSING_FIELD, got %v", err)
	}

	cause := apperrors.UpstreamCall("llm", errors.New("boom"))
	failing := newTestApp(t, testConfig(), &countingLLM{err: cause})
	if _, err := failing.Run(ctx, "hello", "Ada"); !errors.Is(err, cause) {
		t.Errorf("expected the step error, got %v", err)
	}
	runs, err := failing.ListRuns(ctx, 10)
	if err != nil || len(runs) != 0 {
		t.Errorf("failed runs must not be saved: %d, %v", len(runs), err)
	}
}

func TestHistoryDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.History.Enabled = false
	a := newTestApp(t, cfg, &countingLLM{})

	if _, err := a.Run(context.Background(), "hello", ""); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := a.ListRuns(context.Background(), 5); !apperrors.HasCode(err, apperrors.ErrCodeServiceUnavailable) {
		t.Errorf("expected SERVICE_UNAVAILABLE, got %v", err)
	}
}

func TestRun_CachedCompletions(t *testing.T) {
	mini := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Redis = redis.Config{Enabled: true, Addr: mini.Addr()}
	stub := &countingLLM{}
	a := newTestApp(t, cfg, stub)

	for range 2 {
		if _, err := a.Run(context.Background(), "hello", "Ada"); err != nil {
			t.Fatalf("Run: %v", err)
		}
	}
	if stub.calls != 1 {
		t.Errorf("expected the second run to hit the cache, got %d calls", stub.calls)
	}
	if len(mini.Keys()) != 1 {
		t.Errorf("expected one cached response, got %v", mini.Keys())
	}
}

func TestHealth(t *testing.T) {
	mini := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Redis = redis.Config{Enabled: true, Addr: mini.Addr()}
	a := newTestApp(t, cfg, &countingLLM{})

	h := a.Health(context.Background())
	if h.Status != observability.HealthStatusUp || len(h.Components) != 2 {
		t.Fatalf("unexpected health %+v", h)
	}

	mini.Close()
	h = a.Health(context.Background())
	if h.Status != observability.HealthStatusDegraded {
		t.Errorf("expected degraded with redis down, got %s", h.Status)
	}
}

func TestClose_Twice(t *testing.T) {
	a, err := New(context.Background(), testConfig(), WithCompleter(&countingLLM{}), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Close(context.Background()); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := a.Close(context.Background()); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Host = "127.0.0.1"
	a := newTestApp(t, cfg, &countingLLM{})
	a.Cfg.Server.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	if err := a.Serve(ctx, &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if !strings.Contains(out.String(), "POST /api/v1/workflows/:name/runs") {
		t.Errorf("expected routes in summary, got:\n%s", out.String())
	}
}
