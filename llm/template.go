package llm

import (
	"fmt"
	"regexp"
	"slices"
)

var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Template is a prompt with {name} placeholders.
type Template struct {
	text string
	vars []string
}

// NewTemplate parses text.
func NewTemplate(text string) *Template {
	var vars []string
	for _, m := range placeholder.FindAllStringSubmatch(text, -1) {
		if !slices.Contains(vars, m[1]) {
			vars = append(vars, m[1])
		}
	}
	return &Template{text: text, vars: vars}
}

// Vars returns the placeholder names in order of first appearance.
func (t *Template) Vars() []string { return slices.Clone(t.vars) }

// String returns the raw template text.
func (t *Template) String() string { return t.text }

// Render substitutes every placeholder. A placeholder without a value is an
// error; extra values are ignored.
func (t *Template) Render(vars map[string]string) (string, error) {
	for _, name := range t.vars {
		if _, ok := vars[name]; !ok {
			return "", fmt.Errorf("llm: template variable %q not provided", name)
		}
	}
	return placeholder.ReplaceAllStringFunc(t.text, func(m string) string {
		return vars[m[1:len(m)-1]]
	}), nil
}
