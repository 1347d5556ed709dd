package graph

import (
	"context"
	"time"

	"github.com/kbukum/stepflow/logger"
	"github.com/kbukum/stepflow/observability"
)

// WithLogging logs each step's outcome: debug on success, error on failure.
func WithLogging(log *logger.Logger) Middleware {
	return func(s Step) Step { return &loggingStep{Step: s, log: log} }
}

type loggingStep struct {
	Step
	log *logger.Logger
}

func (s *loggingStep) Run(ctx context.Context, rec Record) (Update, error) {
	start := time.Now()
	update, err := s.Step.Run(ctx, rec)

	fields := logger.Fields(
		logger.FieldStep, s.Name(),
		logger.FieldDuration, time.Since(start).Milliseconds(),
	)
	if err != nil {
		fields[logger.FieldError] = err.Error()
		s.log.Error("step failed", fields)
	} else {
		fields["keys"] = len(update)
		s.log.Debug("step completed", fields)
	}
	return update, err
}

// WithTracing opens a span named "{prefix}.{step}" around each step.
func WithTracing(prefix string) Middleware {
	return func(s Step) Step { return &tracingStep{Step: s, prefix: prefix} }
}

type tracingStep struct {
	Step
	prefix string
}

func (s *tracingStep) Run(ctx context.Context, rec Record) (Update, error) {
	ctx, span := observability.StartSpan(ctx, s.prefix+"."+s.Name())
	defer span.End()

	observability.SetSpanAttribute(ctx, "graph.step", s.Name())
	update, err := s.Step.Run(ctx, rec)
	if err != nil {
		observability.SetSpanError(ctx, err)
	}
	return update, err
}

// WithMetrics records a count and duration per step, plus an error count on
// failure.
func WithMetrics(m *observability.Metrics) Middleware {
	return func(s Step) Step { return &metricsStep{Step: s, metrics: m} }
}

type metricsStep struct {
	Step
	metrics *observability.Metrics
}

func (s *metricsStep) Run(ctx context.Context, rec Record) (Update, error) {
	start := time.Now()
	update, err := s.Step.Run(ctx, rec)

	status := "ok"
	if err != nil {
		status = "error"
		s.metrics.RecordError(ctx, "step", s.Name())
	}
	s.metrics.RecordOperation(ctx, s.Name(), "graph.step", status, time.Since(start))
	return update, err
}
