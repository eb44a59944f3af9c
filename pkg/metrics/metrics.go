// Package metrics exposes the execution engine's runtime counters through
// an OpenTelemetry meter backed by a Prometheus exporter, so a process can
// serve /metrics without the engine itself depending on any HTTP framework.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the instruments the Task Runner records against. A nil *Metrics is valid everywhere it's accepted - every
// recording method below guards against it, so metrics are opt-in.
type Metrics struct {
	TasksRunning metric.Int64UpDownCounter
	TaskAttempts metric.Int64Counter
	TaskDuration metric.Float64Histogram
	CircuitOpens metric.Int64Counter
}

// New builds a Metrics instance and the Prometheus exporter backing it.
// The exporter registers with the Prometheus default registry, which the
// caller serves from its own /metrics handler; New does not start an HTTP
// server itself.
func New() (*Metrics, *sdkmetric.MeterProvider, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("github.com/compozy/flowcore/engine")

	tasksRunning, err := meter.Int64UpDownCounter(
		"flowcore_tasks_running",
		metric.WithDescription("Tasks currently executing across all workflows"),
	)
	if err != nil {
		return nil, nil, err
	}
	taskAttempts, err := meter.Int64Counter(
		"flowcore_task_attempts_total",
		metric.WithDescription("Task Runner invocation attempts, including retries"),
	)
	if err != nil {
		return nil, nil, err
	}
	taskDuration, err := meter.Float64Histogram(
		"flowcore_task_duration_seconds",
		metric.WithDescription("Task duration from first attempt to terminal result"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, nil, err
	}
	circuitOpens, err := meter.Int64Counter(
		"flowcore_circuit_open_total",
		metric.WithDescription("Attempts rejected because a hostname's circuit was open"),
	)
	if err != nil {
		return nil, nil, err
	}

	return &Metrics{
		TasksRunning: tasksRunning,
		TaskAttempts: taskAttempts,
		TaskDuration: taskDuration,
		CircuitOpens: circuitOpens,
	}, provider, nil
}

func (m *Metrics) TaskStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.TasksRunning.Add(ctx, 1)
}

func (m *Metrics) TaskFinished(ctx context.Context, taskType string, attempts int, durationSeconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("task_type", taskType))
	m.TasksRunning.Add(ctx, -1)
	m.TaskAttempts.Add(ctx, int64(attempts), attrs)
	m.TaskDuration.Record(ctx, durationSeconds, attrs)
}

func (m *Metrics) CircuitOpen(ctx context.Context, hostname string) {
	if m == nil {
		return
	}
	m.CircuitOpens.Add(ctx, 1, metric.WithAttributes(attribute.String("hostname", hostname)))
}
