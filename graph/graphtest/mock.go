// Package graphtest provides test doubles for graph steps.
package graphtest

import (
	"context"
	"sync"

	"github.com/kbukum/stepflow/graph"
)

// MockStep returns a preset update or error and records its invocations.
type MockStep struct {
	name   string
	update graph.Update
	err    error
	fn     graph.StepFunc

	mu    sync.Mutex
	calls []graph.Record
}

var _ graph.Step = (*MockStep)(nil)

// NewMockStep creates a step that returns update, or err when non-nil.
func NewMockStep(name string, update graph.Update, err error) *MockStep {
	return &MockStep{name: name, update: update, err: err}
}

// NewMockStepFunc creates a step backed by fn.
func NewMockStepFunc(name string, fn graph.StepFunc) *MockStep {
	return &MockStep{name: name, fn: fn}
}

func (s *MockStep) Name() string { return s.name }

func (s *MockStep) Run(ctx context.Context, rec graph.Record) (graph.Update, error) {
	s.mu.Lock()
	s.calls = append(s.calls, rec.Clone())
	s.mu.Unlock()

	if s.fn != nil {
		return s.fn(ctx, rec)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.update, nil
}

// Calls returns how many times Run was invoked.
func (s *MockStep) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// Seen returns a snapshot of the record passed to the i-th call.
func (s *MockStep) Seen(i int) graph.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[i]
}

// Reset clears the recorded calls.
func (s *MockStep) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Chain builds a linear graph over steps ending at End, with the first step
// as entry.
func Chain(name string, steps ...graph.Step) (*graph.Graph, error) {
	g := graph.New(name)
	for _, s := range steps {
		if err := g.Register(s); err != nil {
			return nil, err
		}
	}
	for i, s := range steps {
		to := graph.End
		if i+1 < len(steps) {
			to = steps[i+1].Name()
		}
		if err := g.AddEdge(s.Name(), to); err != nil {
			return nil, err
		}
	}
	if len(steps) > 0 {
		if err := g.SetEntry(steps[0].Name()); err != nil {
			return nil, err
		}
	}
	return g, nil
}
