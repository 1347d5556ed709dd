package graph

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Definition is the YAML form of a graph.
//
//	name: greeting
//	entry: greeting
//	steps:
//	  - name: greeting
//	    route:
//	      condition: always_process
//	      branches: {process: process}
//	  - name: process
//	    component: enhance
//	    next: END
type Definition struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Entry       string    `yaml:"entry"`
	Steps       []StepDef `yaml:"steps"`
}

// StepDef declares one step and its outgoing transition. Component defaults
// to Name. Exactly one of Next and Route must be set.
type StepDef struct {
	Name      string    `yaml:"name"`
	Component string    `yaml:"component"`
	Next      string    `yaml:"next"`
	Route     *RouteDef `yaml:"route"`
}

// RouteDef is a conditional transition.
type RouteDef struct {
	Condition string            `yaml:"condition"`
	Branches  map[string]string `yaml:"branches"`
}

// ParseDefinition decodes a YAML definition.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, definitionErrorf("parse definition: %v", err)
	}
	if def.Name == "" {
		return nil, definitionErrorf("definition has no name")
	}
	if len(def.Steps) == 0 {
		return nil, definitionErrorf("definition %q has no steps", def.Name)
	}
	return &def, nil
}

// LoadDefinition reads and decodes a YAML definition file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("graph: read definition: %w", err)
	}
	return ParseDefinition(data)
}

// Build resolves def against reg and returns a validated Graph. The entry
// defaults to the first step. "END" (any case) is accepted for End, so no
// step may be named "end" in any case.
func Build(def *Definition, reg *Registry) (*Graph, error) {
	g := New(def.Name)

	for _, sd := range def.Steps {
		if strings.EqualFold(sd.Name, "end") {
			return nil, definitionErrorf("step name %q is reserved for the end of the graph", sd.Name)
		}
		component := sd.Component
		if component == "" {
			component = sd.Name
		}
		step, ok := reg.Step(component)
		if !ok {
			return nil, definitionErrorf("step %q: unknown component %q", sd.Name, component)
		}
		if step.Name() != sd.Name {
			step = &renamed{Step: step, name: sd.Name}
		}
		if err := g.Register(step); err != nil {
			return nil, err
		}
	}

	for _, sd := range def.Steps {
		if err := addTransition(g, sd, reg); err != nil {
			return nil, err
		}
	}

	entry := def.Entry
	if entry == "" {
		entry = def.Steps[0].Name
	}
	if err := g.SetEntry(entry); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func addTransition(g *Graph, sd StepDef, reg *Registry) error {
	switch {
	case sd.Next != "" && sd.Route != nil:
		return definitionErrorf("step %q sets both next and route", sd.Name)
	case sd.Next != "":
		return g.AddEdge(sd.Name, target(sd.Next))
	case sd.Route != nil:
		cond, ok := reg.Condition(sd.Route.Condition)
		if !ok {
			return definitionErrorf("step %q: unknown condition %q", sd.Name, sd.Route.Condition)
		}
		branches := make(map[string]string, len(sd.Route.Branches))
		for key, to := range sd.Route.Branches {
			branches[key] = target(to)
		}
		return g.AddConditionalEdge(sd.Name, sd.Route.Condition, cond, branches)
	default:
		return definitionErrorf("step %q has neither next nor route", sd.Name)
	}
}

func target(name string) string {
	if strings.EqualFold(name, "end") {
		return End
	}
	return name
}
