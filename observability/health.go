package observability

import (
	"context"
	"time"
)

// HealthStatus is the state of a component or of the whole service.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusDegraded HealthStatus = "degraded"
)

// Health is one component's report.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// ServiceHealth aggregates component reports. Any down component takes the
// service down; a degraded one degrades it unless it is already down.
type ServiceHealth struct {
	Service    string       `json:"service"`
	Status     HealthStatus `json:"status"`
	Version    string       `json:"version,omitempty"`
	Components []Health     `json:"components,omitempty"`
}

// HealthChecker is implemented by components that can report health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) Health
}

// NewServiceHealth creates a report with status up.
func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{Service: service, Status: HealthStatusUp, Version: version}
}

// AddComponent adds a component report and adjusts the overall status.
func (sh *ServiceHealth) AddComponent(h Health) {
	sh.Components = append(sh.Components, h)
	switch h.Status {
	case HealthStatusDown:
		sh.Status = HealthStatusDown
	case HealthStatusDegraded:
		if sh.Status != HealthStatusDown {
			sh.Status = HealthStatusDegraded
		}
	}
}

// Check runs every checker with a shared timeout.
func Check(ctx context.Context, service, version string, timeout time.Duration, checkers ...HealthChecker) *ServiceHealth {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sh := NewServiceHealth(service, version)
	for _, c := range checkers {
		sh.AddComponent(c.CheckHealth(ctx))
	}
	return sh
}

// CheckFunc adapts a ping-style function into a HealthChecker. A nil error
// reports up; any error reports status with the error message.
func CheckFunc(name string, status HealthStatus, ping func(context.Context) error) HealthChecker {
	return checkFunc{name: name, onErr: status, ping: ping}
}

type checkFunc struct {
	name  string
	onErr HealthStatus
	ping  func(context.Context) error
}

func (c checkFunc) CheckHealth(ctx context.Context) Health {
	if err := c.ping(ctx); err != nil {
		return Health{Name: c.name, Status: c.onErr, Message: err.Error()}
	}
	return Health{Name: c.name, Status: HealthStatusUp}
}
