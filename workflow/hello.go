package workflow

import (
	"context"
	"strings"

	"github.com/kbukum/stepflow/graph"
	"github.com/kbukum/stepflow/llm"
)

// Record fields of the hello workflow.
var (
	HelloName   = graph.Field[string]{Key: "name"}
	HelloAnswer = graph.Field[string]{Key: "answer"}
)

var helloPrompt = llm.NewTemplate("Hello {name}! Please tell me an interesting fact about artificial intelligence.")

func helloWorkflow() *Workflow {
	return &Workflow{
		Name:        "hello",
		Description: "Greet a name and ask the model for a fact about artificial intelligence.",
		register: func(reg *graph.Registry, deps Deps) {
			reg.RegisterFunc("greet", func(ctx context.Context, rec graph.Record) (graph.Update, error) {
				name, err := HelloName.Read(rec)
				if err != nil {
					return nil, err
				}
				prompt, err := helloPrompt.Render(map[string]string{"name": name})
				if err != nil {
					return nil, err
				}
				answer, err := llm.Prompt(ctx, deps.LLM, prompt, llm.WithTemperature(0.7), llm.WithMaxTokens(100))
				if err != nil {
					return nil, err
				}
				return HelloAnswer.Set(nil, strings.TrimSpace(answer)), nil
			})
		},
		input: func(subject string) (graph.Record, error) {
			if subject == "" {
				subject = "World"
			}
			return graph.Record{HelloName.Key: subject}, nil
		},
		report: func(rec graph.Record) (string, error) {
			return HelloAnswer.Read(rec)
		},
	}
}
