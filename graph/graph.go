// Package graph runs named steps over a shared Record.
//
// A Graph is a set of registered steps, one entry step, and one outgoing
// transition per step. A transition is either a plain edge or a conditional
// edge whose Condition picks the next step from a branch table. Runs start at
// the entry, merge each step's Update into the Record, and stop when a
// transition leads to End.
//
//	g := graph.New("greeting")
//	_ = g.RegisterFunc("greet", greet)
//	_ = g.AddEdge("greet", graph.End)
//	_ = g.SetEntry("greet")
//	rec, err := g.Run(ctx, graph.Record{"name": "World"})
//
// Every definition error is checked when the graph is built and unwraps to
// ErrInvalidDefinition. Graphs are not modified by runs, so one Graph may be
// run concurrently; each run works on its own copy of the initial Record.
package graph

import (
	"context"
	"maps"
	"slices"
)

// End is the reserved target that terminates a run.
const End = "__end__"

type transition struct {
	to       string
	condName string
	cond     Condition
	branches map[string]string
}

// Graph holds steps and their transitions.
type Graph struct {
	name        string
	steps       map[string]Step
	order       []string
	transitions map[string]transition
	entry       string
}

// New creates an empty graph.
func New(name string) *Graph {
	return &Graph{
		name:        name,
		steps:       make(map[string]Step),
		transitions: make(map[string]transition),
	}
}

// Name returns the graph name.
func (g *Graph) Name() string { return g.name }

// Register adds s under s.Name(). A duplicate name returns
// *DuplicateStepError and leaves the first step in place.
func (g *Graph) Register(s Step) error {
	if s == nil {
		return definitionErrorf("nil step")
	}
	name := s.Name()
	switch {
	case name == "":
		return definitionErrorf("step name must not be empty")
	case name == End:
		return definitionErrorf("step name %q is reserved", End)
	}
	if _, exists := g.steps[name]; exists {
		return &DuplicateStepError{Name: name}
	}
	g.steps[name] = s
	g.order = append(g.order, name)
	return nil
}

// RegisterFunc registers fn as a step called name.
func (g *Graph) RegisterFunc(name string, fn StepFunc) error {
	if fn == nil {
		return definitionErrorf("step %q has a nil function", name)
	}
	return g.Register(NewStep(name, fn))
}

// AddEdge adds an unconditional transition. to may be End.
func (g *Graph) AddEdge(from, to string) error {
	if err := g.checkSource(from); err != nil {
		return err
	}
	if err := g.checkTarget(to); err != nil {
		return err
	}
	g.transitions[from] = transition{to: to}
	return nil
}

// AddConditionalEdge adds a transition that runs cond after from and follows
// branches[cond(rec)]. Every branch target must already be registered or End.
// name identifies the condition in errors and in Edges.
func (g *Graph) AddConditionalEdge(from, name string, cond Condition, branches map[string]string) error {
	if err := g.checkSource(from); err != nil {
		return err
	}
	if cond == nil {
		return definitionErrorf("conditional edge from %q has a nil condition", from)
	}
	if len(branches) == 0 {
		return definitionErrorf("conditional edge from %q has no branches", from)
	}
	for _, key := range slices.Sorted(maps.Keys(branches)) {
		if err := g.checkTarget(branches[key]); err != nil {
			return err
		}
	}
	g.transitions[from] = transition{
		condName: name,
		cond:     cond,
		branches: maps.Clone(branches),
	}
	return nil
}

// SetEntry marks the step that runs first.
func (g *Graph) SetEntry(name string) error {
	if _, ok := g.steps[name]; !ok {
		return &UnknownStepError{Name: name}
	}
	g.entry = name
	return nil
}

// Entry returns the entry step name, or "" when unset.
func (g *Graph) Entry() string { return g.entry }

// Steps returns step names in registration order.
func (g *Graph) Steps() []string { return slices.Clone(g.order) }

// Step returns the step registered under name.
func (g *Graph) Step(name string) (Step, bool) {
	s, ok := g.steps[name]
	return s, ok
}

// Edge is one row of the transition table. Condition and Branch are empty
// for unconditional edges.
type Edge struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Condition string `json:"condition,omitempty"`
	Branch    string `json:"branch,omitempty"`
}

// Edges returns the transition table in step registration order, branches
// sorted by key.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, from := range g.order {
		t, ok := g.transitions[from]
		if !ok {
			continue
		}
		if t.cond == nil {
			edges = append(edges, Edge{From: from, To: t.to})
			continue
		}
		for _, key := range slices.Sorted(maps.Keys(t.branches)) {
			edges = append(edges, Edge{From: from, To: t.branches[key], Condition: t.condName, Branch: key})
		}
	}
	return edges
}

// Validate checks that an entry is set and that every step has an outgoing
// transition. The per-call checks of Register and the edge methods already
// hold for anything that made it into the graph.
func (g *Graph) Validate() error {
	if g.entry == "" {
		return definitionErrorf("graph %q has no entry step", g.name)
	}
	for _, name := range g.order {
		if _, ok := g.transitions[name]; !ok {
			return definitionErrorf("step %q has no outgoing transition", name)
		}
	}
	return nil
}

// Run executes the graph with a default Runner.
func (g *Graph) Run(ctx context.Context, initial Record) (Record, error) {
	return NewRunner().Run(ctx, g, initial)
}

func (g *Graph) checkSource(from string) error {
	if _, ok := g.steps[from]; !ok {
		return &UnknownStepError{Name: from}
	}
	if _, exists := g.transitions[from]; exists {
		return definitionErrorf("step %q already has an outgoing transition", from)
	}
	return nil
}

func (g *Graph) checkTarget(to string) error {
	if to == End {
		return nil
	}
	if _, ok := g.steps[to]; !ok {
		return &UnknownStepError{Name: to}
	}
	return nil
}

// next resolves the step after from. The returned bool is false when the
// condition produced a key with no branch.
func (t transition) next(rec Record) (to, key string, ok bool) {
	if t.cond == nil {
		return t.to, "", true
	}
	key = t.cond(rec)
	to, ok = t.branches[key]
	return to, key, ok
}
