package graph

import (
	"fmt"
	"maps"
)

// Record is the shared state a run threads through its steps. Fields only
// accumulate: steps add or overwrite keys and never remove them.
type Record map[string]any

// Update is the partial record a step returns. The runner merges it into the
// run's Record, later keys overwriting earlier ones.
type Update map[string]any

// Clone returns a deep copy of r. Nested map[string]any values are copied so
// that a run never aliases its caller's data.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[k] = cloneValue(inner)
		}
		return m
	case Record:
		return t.Clone()
	case []any:
		s := make([]any, len(t))
		for i, inner := range t {
			s[i] = cloneValue(inner)
		}
		return s
	default:
		return v
	}
}

func (r Record) merge(u Update) {
	maps.Copy(r, u)
}

// Field is a typed key into a Record.
//
//	var Message = graph.Field[string]{Key: "message"}
//	msg, err := Message.Read(rec)
type Field[T any] struct {
	Key string
}

// Read returns the value at f.Key, failing if it is missing or of another type.
func (f Field[T]) Read(r Record) (T, error) {
	var zero T
	raw, ok := r[f.Key]
	if !ok {
		return zero, fmt.Errorf("graph: record field %q not found", f.Key)
	}
	val, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("graph: record field %q: expected %T, got %T", f.Key, zero, raw)
	}
	return val, nil
}

// Lookup returns the value at f.Key and whether it was present with type T.
func (f Field[T]) Lookup(r Record) (T, bool) {
	val, ok := r[f.Key].(T)
	return val, ok
}

// Get returns the value at f.Key or def.
func (f Field[T]) Get(r Record, def T) T {
	if val, ok := f.Lookup(r); ok {
		return val
	}
	return def
}

// Set stores v in u, allocating u when nil, and returns it.
func (f Field[T]) Set(u Update, v T) Update {
	if u == nil {
		u = Update{}
	}
	u[f.Key] = v
	return u
}
