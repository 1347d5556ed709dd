// Package anthropic registers the "anthropic" llm dialect for the Messages API.
package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kbukum/stepflow/httpclient"
	"github.com/kbukum/stepflow/llm"
)

const (
	// Name is the registered dialect name.
	Name = "anthropic"

	// APIVersion is sent as the anthropic-version header.
	APIVersion = "2023-06-01"

	defaultBaseURL = "https://api.anthropic.com"
	defaultModel   = "claude-3-5-sonnet-20241022"
)

func init() {
	llm.RegisterDialect(Name, Dialect{})
}

// Dialect maps llm requests to POST /v1/messages.
type Dialect struct{}

var _ llm.Dialect = Dialect{}

func (Dialect) Name() string           { return Name }
func (Dialect) DefaultBaseURL() string { return defaultBaseURL }
func (Dialect) DefaultModel() string   { return defaultModel }
func (Dialect) ChatPath() string       { return "/v1/messages" }

func (Dialect) Auth(apiKey string) *httpclient.Auth {
	return httpclient.HeaderAuth("x-api-key", apiKey)
}

func (Dialect) Headers() map[string]string {
	return map[string]string{"anthropic-version": APIVersion}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type response struct {
	Model   string         `json:"model"`
	Content []contentBlock `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// BuildRequest folds system-role messages into the top-level system field,
// which is the only place the Messages API accepts them.
func (Dialect) BuildRequest(req llm.CompletionRequest) (any, error) {
	out := request{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	system := []string{}
	if req.SystemPrompt != "" {
		system = append(system, req.SystemPrompt)
	}
	for _, m := range req.Messages {
		if m.Role == llm.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		out.Messages = append(out.Messages, message{Role: m.Role, Content: m.Content})
	}
	if len(out.Messages) == 0 {
		return nil, fmt.Errorf("anthropic: at least one user message is required")
	}
	out.System = strings.Join(system, "\n\n")
	return out, nil
}

func (Dialect) ParseResponse(body []byte) (*llm.CompletionResponse, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("anthropic: decode response: %w", err)
	}
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("anthropic: response has no text content")
	}
	return &llm.CompletionResponse{
		Content: text.String(),
		Model:   resp.Model,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}
