// Package openai registers the "openai" llm dialect for the Chat Completions API.
package openai

import (
	"encoding/json"
	"fmt"

	"github.com/kbukum/stepflow/httpclient"
	"github.com/kbukum/stepflow/llm"
)

const (
	// Name is the registered dialect name.
	Name = "openai"

	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
)

func init() {
	llm.RegisterDialect(Name, Dialect{})
}

// Dialect maps llm requests to POST /chat/completions.
type Dialect struct{}

var _ llm.Dialect = Dialect{}

func (Dialect) Name() string               { return Name }
func (Dialect) DefaultBaseURL() string     { return defaultBaseURL }
func (Dialect) DefaultModel() string       { return defaultModel }
func (Dialect) ChatPath() string           { return "/chat/completions" }
func (Dialect) Headers() map[string]string { return nil }

func (Dialect) Auth(apiKey string) *httpclient.Auth {
	return httpclient.BearerAuth(apiKey)
}

type request struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type response struct {
	Model   string `json:"model"`
	Choices []struct {
		Message llm.Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (Dialect) BuildRequest(req llm.CompletionRequest) (any, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("openai: at least one message is required")
	}
	msgs := make([]llm.Message, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: req.SystemPrompt})
	}
	msgs = append(msgs, req.Messages...)
	return request{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}, nil
}

func (Dialect) ParseResponse(body []byte) (*llm.CompletionResponse, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: response has no choices")
	}
	return &llm.CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
