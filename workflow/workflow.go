// Package workflow holds the shipped workflows. Each one pairs an embedded
// graph definition with the steps it names, a builder for its initial
// record and a renderer for its final report.
package workflow

import (
	"context"
	"embed"
	"fmt"
	"slices"
	"strings"

	apperrors "github.com/kbukum/stepflow/errors"
	"github.com/kbukum/stepflow/graph"
	"github.com/kbukum/stepflow/llm"
	"github.com/kbukum/stepflow/logger"
	"github.com/kbukum/stepflow/web"
)

//go:embed definitions/*.yaml
var definitions embed.FS

// PageFetcher retrieves web pages. *web.Fetcher implements it.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*web.Page, error)
}

// Deps are the collaborators steps close over.
type Deps struct {
	LLM llm.Completer
	Web PageFetcher
	Log *logger.Logger
}

func (d Deps) logger() *logger.Logger {
	if d.Log == nil {
		return logger.Nop()
	}
	return d.Log
}

// Workflow is a runnable, named graph.
type Workflow struct {
	Name        string
	Description string

	needsWeb bool
	register func(reg *graph.Registry, deps Deps)
	input    func(subject string) (graph.Record, error)
	report   func(rec graph.Record) (string, error)
}

// Definition returns the workflow's parsed graph definition.
func (w *Workflow) Definition() (*graph.Definition, error) {
	data, err := definitions.ReadFile("definitions/" + w.Name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("workflow %s: %w", w.Name, err)
	}
	return graph.ParseDefinition(data)
}

// Build assembles the workflow's graph over deps.
func (w *Workflow) Build(deps Deps) (*graph.Graph, error) {
	if deps.LLM == nil {
		return nil, apperrors.Configuration(fmt.Sprintf("workflow %s requires an LLM client", w.Name))
	}
	if w.needsWeb && deps.Web == nil {
		return nil, apperrors.Configuration(fmt.Sprintf("workflow %s requires a web fetcher", w.Name))
	}

	def, err := w.Definition()
	if err != nil {
		return nil, err
	}
	reg := graph.NewRegistry()
	w.register(reg, deps)
	return graph.Build(def, reg)
}

// Input returns the initial record for subject.
func (w *Workflow) Input(subject string) (graph.Record, error) {
	return w.input(strings.TrimSpace(subject))
}

// Report renders the printable result of a completed run.
func (w *Workflow) Report(rec graph.Record) (string, error) {
	return w.report(rec)
}

var catalog = []*Workflow{
	helloWorkflow(),
	greetingWorkflow(),
	researchWorkflow(),
	scrapeWorkflow(),
}

// Catalog returns every shipped workflow, sorted by name.
func Catalog() []*Workflow {
	out := slices.Clone(catalog)
	slices.SortFunc(out, func(a, b *Workflow) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Names returns the sorted workflow names.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for _, w := range Catalog() {
		names = append(names, w.Name)
	}
	return names
}

// Lookup returns the named workflow or a NOT_FOUND AppError.
func Lookup(name string) (*Workflow, error) {
	for _, w := range catalog {
		if w.Name == name {
			return w, nil
		}
	}
	return nil, apperrors.NotFound("workflow", name).
		WithDetail("available", strings.Join(Names(), ", "))
}

func requireSubject(subject, what string) error {
	if subject == "" {
		return apperrors.MissingField(what)
	}
	return nil
}
