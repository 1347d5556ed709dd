package llm

import (
	"context"
	"testing"
)

func echo(captured *CompletionRequest, reply string) Completer {
	return CompleterFunc(func(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
		*captured = req
		return &CompletionResponse{Content: reply}, nil
	})
}

func TestPrompt_AppliesOptions(t *testing.T) {
	var req CompletionRequest
	text, err := Prompt(context.Background(), echo(&req, "done"), "hello",
		WithModel("m"), WithTemperature(0), WithMaxTokens(50), WithSystem("be brief"))
	if err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	if text != "done" {
		t.Errorf("text = %q", text)
	}
	if req.Model != "m" || req.MaxTokens != 50 || req.SystemPrompt != "be brief" {
		t.Errorf("options not applied: %+v", req)
	}
	if req.Temperature == nil || *req.Temperature != 0 {
		t.Errorf("temperature = %v", req.Temperature)
	}
	if req.UserText() != "hello" {
		t.Errorf("UserText() = %q", req.UserText())
	}
}

func TestComplete_SystemAndUser(t *testing.T) {
	var req CompletionRequest
	if _, err := Complete(context.Background(), echo(&req, "ok"), "sys", "usr"); err != nil {
		t.Fatal(err)
	}
	if req.SystemPrompt != "sys" || len(req.Messages) != 1 || req.Messages[0].Content != "usr" {
		t.Errorf("unexpected request: %+v", req)
	}
}

func TestCompleteStructured(t *testing.T) {
	var req CompletionRequest
	c := echo(&req, "```json\n{\"name\": \"Alice\", \"age\": 30}\n```")

	var result struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}
	if err := CompleteStructured(context.Background(), c, "Extract info.", "Alice is 30.", &result); err != nil {
		t.Fatalf("CompleteStructured: %v", err)
	}
	if result.Name != "Alice" || result.Age != 30 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose", `Sure! {"a":1} hope that helps`, `{"a":1}`},
		{"no object", "nothing", "nothing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.in); got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTemplate_Render(t *testing.T) {
	tmpl := NewTemplate("Hello {name}! Tell me about {topic}. Bye {name}.")
	if got := tmpl.Vars(); len(got) != 2 || got[0] != "name" || got[1] != "topic" {
		t.Errorf("Vars() = %v", got)
	}

	out, err := tmpl.Render(map[string]string{"name": "World", "topic": "graphs", "unused": "x"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "Hello World! Tell me about graphs. Bye World." {
		t.Errorf("Render() = %q", out)
	}
}

func TestTemplate_MissingVariable(t *testing.T) {
	_, err := NewTemplate("Hello {name}!").Render(map[string]string{})
	if err == nil {
		t.Fatal("expected error for missing variable")
	}
}

func TestTemplate_IgnoresNonPlaceholders(t *testing.T) {
	out, err := NewTemplate(`json: {"a": 1} and { spaced }`).Render(nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != `json: {"a": 1} and { spaced }` {
		t.Errorf("Render() = %q", out)
	}
}
