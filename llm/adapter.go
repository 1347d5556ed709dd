package llm

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"

	apperrors "github.com/kbukum/stepflow/errors"
	"github.com/kbukum/stepflow/httpclient"
	"github.com/kbukum/stepflow/observability"
)

// ErrNoDialect is returned by NewWithDialect for a nil dialect.
var ErrNoDialect = errors.New("llm: dialect is required")

// Adapter is a Completer that talks to a provider through its Dialect over
// the shared httpclient.
type Adapter struct {
	client    *httpclient.Client
	dialect   Dialect
	model     string
	temp      float64
	maxTokens int
}

var _ Completer = (*Adapter)(nil)

// New creates an adapter for the registered dialect named by cfg.Provider.
func New(cfg Config) (*Adapter, error) {
	dialect, err := GetDialect(cfg.Provider)
	if err != nil {
		return nil, err
	}
	return NewWithDialect(dialect, cfg)
}

// NewWithDialect creates an adapter without consulting the registry.
func NewWithDialect(dialect Dialect, cfg Config) (*Adapter, error) {
	if dialect == nil {
		return nil, ErrNoDialect
	}
	if cfg.Provider == "" {
		cfg.Provider = dialect.Name()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = dialect.DefaultBaseURL()
	}
	if cfg.Model == "" {
		cfg.Model = dialect.DefaultModel()
	}

	headers := maps.Clone(dialect.Headers())
	if headers == nil {
		headers = map[string]string{}
	}
	maps.Copy(headers, cfg.Headers)

	client, err := httpclient.New(httpclient.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Headers: headers,
		Auth:    dialect.Auth(cfg.APIKey),
		Retry:   cfg.Retry,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create http client: %w", err)
	}

	return &Adapter{
		client:    client,
		dialect:   dialect,
		model:     cfg.Model,
		temp:      cfg.Temperature,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Name returns the dialect name.
func (a *Adapter) Name() string { return a.dialect.Name() }

// Model returns the default model.
func (a *Adapter) Model() string { return a.model }

// Complete sends req to the provider. Transport and provider failures come
// back as UPSTREAM_CALL_ERROR AppErrors wrapping the httpclient error.
func (a *Adapter) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	a.applyDefaults(&req)

	ctx, span := observability.StartSpan(ctx, "llm.complete")
	defer span.End()
	observability.SetSpanAttribute(ctx, "llm.provider", a.dialect.Name())
	observability.SetSpanAttribute(ctx, "llm.model", req.Model)

	body, err := a.dialect.BuildRequest(req)
	if err != nil {
		return nil, fmt.Errorf("llm: build request: %w", err)
	}

	resp, err := a.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   a.dialect.ChatPath(),
		Body:   body,
	})
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, apperrors.UpstreamCall("llm", err)
	}

	result, err := a.dialect.ParseResponse(resp.Body)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, apperrors.UpstreamCall("llm", fmt.Errorf("parse response: %w", err))
	}
	if result.Model == "" {
		result.Model = req.Model
	}
	if result.Usage.TotalTokens == 0 {
		result.Usage.TotalTokens = result.Usage.PromptTokens + result.Usage.CompletionTokens
	}
	observability.SetSpanAttribute(ctx, "llm.total_tokens", result.Usage.TotalTokens)
	return result, nil
}

func (a *Adapter) applyDefaults(req *CompletionRequest) {
	if req.Model == "" {
		req.Model = a.model
	}
	if req.Temperature == nil {
		req.Temperature = Float(a.temp)
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = a.maxTokens
	}
}
