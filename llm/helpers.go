package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Option adjusts a request built by Prompt.
type Option func(*CompletionRequest)

// WithModel overrides the model.
func WithModel(model string) Option {
	return func(r *CompletionRequest) { r.Model = model }
}

// WithTemperature sets the sampling temperature, 0 included.
func WithTemperature(t float64) Option {
	return func(r *CompletionRequest) { r.Temperature = Float(t) }
}

// WithMaxTokens limits the response length.
func WithMaxTokens(n int) Option {
	return func(r *CompletionRequest) { r.MaxTokens = n }
}

// WithSystem sets the system prompt.
func WithSystem(system string) Option {
	return func(r *CompletionRequest) { r.SystemPrompt = system }
}

// Prompt sends prompt as a single user message and returns the text.
func Prompt(ctx context.Context, c Completer, prompt string, opts ...Option) (string, error) {
	req := CompletionRequest{Messages: []Message{{Role: RoleUser, Content: prompt}}}
	for _, opt := range opts {
		opt(&req)
	}
	resp, err := c.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Complete sends a system and user prompt and returns the text.
func Complete(ctx context.Context, c Completer, system, user string) (string, error) {
	return Prompt(ctx, c, user, WithSystem(system))
}

// CompleteStructured asks for a JSON object and decodes it into result.
func CompleteStructured(ctx context.Context, c Completer, system, user string, result any) error {
	system += "\n\nIMPORTANT: Respond with ONLY the JSON object. " +
		"No markdown, no code blocks, no explanations. " +
		"Start with { and end with }."

	text, err := Complete(ctx, c, system, user)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(extractJSON(text)), result); err != nil {
		return fmt.Errorf("llm: unmarshal structured response: %w", err)
	}
	return nil
}

// extractJSON pulls a JSON object out of output that may carry markdown fences.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s[3:], "\n"); idx >= 0 {
			s = s[3+idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
