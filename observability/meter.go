package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/stepflow/logger"
)

// InitMeter installs a global meter provider exporting over OTLP/HTTP.
// The caller must Shutdown the returned provider.
func InitMeter(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	cfg.ApplyDefaults()
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("observability: metric exporter: %w", err)
	}
	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.ExportInterval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.WithComponent("observability").Info("meter initialized", logger.Fields(
		"endpoint", cfg.Endpoint,
		"interval", cfg.ExportInterval.String(),
	))
	return mp, nil
}

// Meter returns the stepflow meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics holds the instruments stepflow records.
type Metrics struct {
	runTotal          metric.Int64Counter
	runDuration       metric.Float64Histogram
	operationTotal    metric.Int64Counter
	operationDuration metric.Float64Histogram
	errorTotal        metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.runTotal, err = meter.Int64Counter("workflow.run.total",
		metric.WithDescription("Workflow runs by workflow and status")); err != nil {
		return nil, fmt.Errorf("observability: workflow.run.total: %w", err)
	}
	if m.runDuration, err = meter.Float64Histogram("workflow.run.duration",
		metric.WithDescription("Workflow run duration"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("observability: workflow.run.duration: %w", err)
	}
	if m.operationTotal, err = meter.Int64Counter("operation.total",
		metric.WithDescription("Operations by component, operation and status")); err != nil {
		return nil, fmt.Errorf("observability: operation.total: %w", err)
	}
	if m.operationDuration, err = meter.Float64Histogram("operation.duration",
		metric.WithDescription("Operation duration"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("observability: operation.duration: %w", err)
	}
	if m.errorTotal, err = meter.Int64Counter("error.total",
		metric.WithDescription("Errors by type and component")); err != nil {
		return nil, fmt.Errorf("observability: error.total: %w", err)
	}
	return &m, nil
}

// RecordRun records one finished workflow run.
func (m *Metrics) RecordRun(ctx context.Context, workflow, status string, d time.Duration) {
	m.runTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("workflow", workflow),
		attribute.String("status", status),
	))
	m.runDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("workflow", workflow)))
}

// RecordOperation records one operation, such as a step invocation.
func (m *Metrics) RecordOperation(ctx context.Context, component, operation, status string, d time.Duration) {
	m.operationTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component", component),
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
	m.operationDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("component", component),
		attribute.String("operation", operation),
	))
}

// RecordError counts an error.
func (m *Metrics) RecordError(ctx context.Context, errType, component string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", errType),
		attribute.String("component", component),
	))
}
