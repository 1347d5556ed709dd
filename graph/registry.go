package graph

import (
	"maps"
	"slices"
	"sync"
)

// Registry maps component and condition names used in definitions to their
// implementations.
type Registry struct {
	mu         sync.RWMutex
	steps      map[string]Step
	conditions map[string]Condition
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		steps:      make(map[string]Step),
		conditions: make(map[string]Condition),
	}
}

// RegisterStep makes s available as a component under name.
func (r *Registry) RegisterStep(name string, s Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps[name] = s
}

// RegisterFunc makes fn available as a component under name.
func (r *Registry) RegisterFunc(name string, fn StepFunc) {
	r.RegisterStep(name, NewStep(name, fn))
}

// RegisterCondition makes c available under name.
func (r *Registry) RegisterCondition(name string, c Condition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conditions[name] = c
}

// Step looks up a component.
func (r *Registry) Step(name string) (Step, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.steps[name]
	return s, ok
}

// Condition looks up a condition.
func (r *Registry) Condition(name string) (Condition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conditions[name]
	return c, ok
}

// Components returns sorted component names.
func (r *Registry) Components() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.steps))
}

// Conditions returns sorted condition names.
func (r *Registry) Conditions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.conditions))
}
