package graph

import "time"

// Step statuses recorded in a Result.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Result is the trace of one run.
type Result struct {
	Record   Record
	Path     []StepResult
	Duration time.Duration
}

// StepResult describes one step invocation. Branch is the condition key that
// selected the next step, empty after an unconditional edge.
type StepResult struct {
	Name     string
	Status   string
	Branch   string
	Duration time.Duration
	Err      error
}

// StepNames returns the names along the path in execution order.
func (r *Result) StepNames() []string {
	names := make([]string, len(r.Path))
	for i, sr := range r.Path {
		names[i] = sr.Name
	}
	return names
}
