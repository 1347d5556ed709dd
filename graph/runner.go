package graph

import (
	"context"
	"time"
)

// Middleware wraps a step at dispatch time.
type Middleware func(Step) Step

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithMiddleware appends middleware. The first one given is the outermost.
func WithMiddleware(mw ...Middleware) RunnerOption {
	return func(r *Runner) { r.middleware = append(r.middleware, mw...) }
}

// Runner executes graphs one step at a time. It holds no per-run state and
// may be shared.
//
// A Runner does not inspect ctx, add timeouts, retry failed steps, or detect
// cycles: ctx goes to each step untouched and a cyclic graph runs until a
// step fails.
type Runner struct {
	middleware []Middleware
}

// NewRunner creates a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes g from its entry step on a copy of initial and returns the
// final record. On failure the record accumulated so far is returned with the
// error. A step's own error is returned unchanged.
func (r *Runner) Run(ctx context.Context, g *Graph, initial Record) (Record, error) {
	res, err := r.Execute(ctx, g, initial)
	return res.Record, err
}

// Execute is Run with the full trace. The Result is never nil.
func (r *Runner) Execute(ctx context.Context, g *Graph, initial Record) (*Result, error) {
	start := time.Now()
	res := &Result{Record: initial.Clone()}
	defer func() { res.Duration = time.Since(start) }()

	if g.entry == "" {
		return res, definitionErrorf("graph %q has no entry step", g.name)
	}

	current := g.entry
	for current != End {
		step, ok := g.steps[current]
		if !ok {
			return res, &UnknownStepError{Name: current}
		}

		stepStart := time.Now()
		update, err := r.wrap(step).Run(ctx, res.Record)
		sr := StepResult{Name: current, Duration: time.Since(stepStart)}
		if err != nil {
			sr.Status, sr.Err = StatusFailed, err
			res.Path = append(res.Path, sr)
			return res, err
		}
		res.Record.merge(update)
		sr.Status = StatusCompleted

		t, ok := g.transitions[current]
		if !ok {
			res.Path = append(res.Path, sr)
			return res, definitionErrorf("step %q has no outgoing transition", current)
		}
		next, key, ok := t.next(res.Record)
		sr.Branch = key
		res.Path = append(res.Path, sr)
		if !ok {
			return res, &MissingBranchError{From: current, Condition: t.condName, Key: key}
		}
		current = next
	}
	return res, nil
}

func (r *Runner) wrap(s Step) Step {
	for i := len(r.middleware) - 1; i >= 0; i-- {
		s = r.middleware[i](s)
	}
	return s
}
