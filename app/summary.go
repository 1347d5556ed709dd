package app

import (
	"fmt"
	"io"
	"time"
)

// ComponentStatus is one line of the startup summary.
type ComponentStatus struct {
	Name    string
	Status  string
	Details string
}

// Summary tracks what New wired, for display when serving.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	components      []ComponentStatus
	routes          []string
}

// NewSummary creates an empty summary.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// Add records a component.
func (s *Summary) Add(name, status, details string) {
	s.components = append(s.components, ComponentStatus{Name: name, Status: status, Details: details})
}

// TrackRoute records an HTTP route as "METHOD /path".
func (s *Summary) TrackRoute(route string) {
	s.routes = append(s.routes, route)
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// Components returns the recorded components in order.
func (s *Summary) Components() []ComponentStatus {
	return s.components
}

// Write prints the summary as a tree.
func (s *Summary) Write(w io.Writer) {
	version := s.version
	if version == "" {
		version = "dev"
	}
	fmt.Fprintf(w, "\n%s %s started in %.2fs\n\n", s.serviceName, version, s.startupDuration.Seconds())

	fmt.Fprintf(w, "Components\n")
	for i, c := range s.components {
		line := fmt.Sprintf("%s %s (%s)", branch(i, len(s.components)), c.Name, c.Status)
		if c.Details != "" {
			line += ": " + c.Details
		}
		fmt.Fprintf(w, "   %s\n", line)
	}

	if len(s.routes) > 0 {
		fmt.Fprintf(w, "\nRoutes (%d)\n", len(s.routes))
		for i, r := range s.routes {
			fmt.Fprintf(w, "   %s %s\n", branch(i, len(s.routes)), r)
		}
	}
	fmt.Fprintln(w)
}

func branch(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}
