package graph

import "context"

// Step is one unit of work in a graph. A step is built once and may run many
// times, so it keeps no per-run state: everything it needs comes from the
// Record and everything it produces goes into the returned Update.
type Step interface {
	Name() string
	Run(ctx context.Context, rec Record) (Update, error)
}

// StepFunc is the function form of Step.Run.
type StepFunc func(ctx context.Context, rec Record) (Update, error)

// NewStep names fn as a Step.
func NewStep(name string, fn StepFunc) Step {
	return &funcStep{name: name, fn: fn}
}

type funcStep struct {
	name string
	fn   StepFunc
}

func (s *funcStep) Name() string { return s.name }

func (s *funcStep) Run(ctx context.Context, rec Record) (Update, error) {
	return s.fn(ctx, rec)
}

// renamed exposes an existing step under another name.
type renamed struct {
	Step
	name string
}

func (s *renamed) Name() string { return s.name }

// Condition picks a branch key from the record after its source step ran.
// It must return a key present in the edge's branch table for every record
// shape the source step can produce.
type Condition func(rec Record) string
