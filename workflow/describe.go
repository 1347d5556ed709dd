package workflow

import (
	"context"
	"fmt"

	"github.com/kbukum/stepflow/graph"
	"github.com/kbukum/stepflow/llm"
	"github.com/kbukum/stepflow/web"
)

// Info is the inspectable shape of a workflow.
type Info struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Entry       string       `json:"entry"`
	Steps       []string     `json:"steps"`
	Edges       []graph.Edge `json:"edges"`
}

// Describe returns the transition table of g for w.
func Describe(w *Workflow, g *graph.Graph) Info {
	return Info{
		Name:        w.Name,
		Description: w.Description,
		Entry:       g.Entry(),
		Steps:       g.Steps(),
		Edges:       g.Edges(),
	}
}

// Inspect builds w without live collaborators and describes it. The graph
// it builds is never run.
func (w *Workflow) Inspect() (Info, error) {
	g, err := w.Build(Deps{LLM: unwired{}, Web: unwired{}})
	if err != nil {
		return Info{}, err
	}
	return Describe(w, g), nil
}

type unwired struct{}

func (unwired) Complete(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return nil, fmt.Errorf("workflow: llm not wired")
}

func (unwired) Fetch(context.Context, string) (*web.Page, error) {
	return nil, fmt.Errorf("workflow: web fetcher not wired")
}
