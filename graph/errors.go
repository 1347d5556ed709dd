package graph

import (
	"errors"
	"fmt"
)

// ErrInvalidDefinition is the category every graph definition error unwraps to.
var ErrInvalidDefinition = errors.New("graph: invalid definition")

// DefinitionError reports a malformed graph that no more specific error covers.
type DefinitionError struct {
	Msg string
}

func (e *DefinitionError) Error() string { return "graph: " + e.Msg }
func (e *DefinitionError) Unwrap() error { return ErrInvalidDefinition }

func definitionErrorf(format string, args ...any) *DefinitionError {
	return &DefinitionError{Msg: fmt.Sprintf(format, args...)}
}

// DuplicateStepError is returned when a step name is registered twice.
// The first registration is kept.
type DuplicateStepError struct {
	Name string
}

func (e *DuplicateStepError) Error() string {
	return fmt.Sprintf("graph: step %q is already registered", e.Name)
}
func (e *DuplicateStepError) Unwrap() error { return ErrInvalidDefinition }

// UnknownStepError is returned when an edge or the entry names a step that
// was never registered.
type UnknownStepError struct {
	Name string
}

func (e *UnknownStepError) Error() string {
	return fmt.Sprintf("graph: unknown step %q", e.Name)
}
func (e *UnknownStepError) Unwrap() error { return ErrInvalidDefinition }

// MissingBranchError is returned at run time when a condition yields a key
// with no entry in its branch table.
type MissingBranchError struct {
	From      string
	Condition string
	Key       string
}

func (e *MissingBranchError) Error() string {
	return fmt.Sprintf("graph: condition %q after step %q returned %q, which has no branch", e.Condition, e.From, e.Key)
}
func (e *MissingBranchError) Unwrap() error { return ErrInvalidDefinition }
