package workflow

import (
	"context"
	"strings"

	"github.com/kbukum/stepflow/graph"
	"github.com/kbukum/stepflow/llm"
)

// Record fields of the greeting workflow.
var (
	GreetingMessage   = graph.Field[string]{Key: "message"}
	GreetingProcessed = graph.Field[bool]{Key: "processed"}
)

const initialGreeting = "Hello from stepflow!"

var enhancePrompt = llm.NewTemplate("Make this greeting more enthusiastic and add an interesting fact about graphs: {message}")

func greetingWorkflow() *Workflow {
	return &Workflow{
		Name:        "greeting",
		Description: "Build a greeting and have the model make it more enthusiastic.",
		register: func(reg *graph.Registry, deps Deps) {
			reg.RegisterFunc("greeting", func(context.Context, graph.Record) (graph.Update, error) {
				u := GreetingMessage.Set(nil, initialGreeting)
				return GreetingProcessed.Set(u, false), nil
			})
			reg.RegisterFunc("enhance", func(ctx context.Context, rec graph.Record) (graph.Update, error) {
				msg, err := GreetingMessage.Read(rec)
				if err != nil {
					return nil, err
				}
				prompt, err := enhancePrompt.Render(map[string]string{"message": msg})
				if err != nil {
					return nil, err
				}
				enhanced, err := llm.Prompt(ctx, deps.LLM, prompt)
				if err != nil {
					return nil, err
				}
				u := GreetingMessage.Set(nil, strings.TrimSpace(enhanced))
				return GreetingProcessed.Set(u, true), nil
			})
			reg.RegisterCondition("always_process", func(graph.Record) string { return "process" })
			reg.RegisterCondition("processed", func(rec graph.Record) string {
				if GreetingProcessed.Get(rec, false) {
					return "done"
				}
				return "pending"
			})
		},
		input: func(string) (graph.Record, error) {
			return graph.Record{GreetingMessage.Key: "", GreetingProcessed.Key: false}, nil
		},
		report: func(rec graph.Record) (string, error) {
			return GreetingMessage.Read(rec)
		},
	}
}
