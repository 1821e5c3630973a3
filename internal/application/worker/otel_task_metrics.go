// OpenTelemetry metrics for worker pool task execution.
package worker

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names following OpenTelemetry semantic conventions.
const (
	TaskDurationHistogramName = "worker_task_duration_seconds"
	TaskSubmittedCounterName  = "worker_task_submitted_total"
	TaskCompletedCounterName  = "worker_task_completed_total"
	TaskFailedCounterName     = "worker_task_failed_total"
	TaskRetryCounterName      = "worker_task_retry_total"
)

// Common attribute keys for consistent labeling.
const (
	AttrWorkload     = "workload" // notes, embeddings
	AttrRetryAttempt = "retry_attempt"
)

// TaskMetrics provides OpenTelemetry-based metrics collection for pool
// task execution.
type TaskMetrics struct {
	taskDuration   metric.Float64Histogram
	submittedTotal metric.Int64Counter
	completedTotal metric.Int64Counter
	failedTotal    metric.Int64Counter
	retryTotal     metric.Int64Counter
}

// NewTaskMetrics creates a new OpenTelemetry metrics collector for worker
// pools.
func NewTaskMetrics() (*TaskMetrics, error) {
	meter := otel.Meter("medinotes/worker", metric.WithInstrumentationVersion("1.0.0"))

	// Task bodies include LLM round-trips, so buckets reach into minutes.
	taskLatencyBuckets := []float64{
		0.1,   // 100ms
		0.5,   // 500ms
		1.0,   // 1s
		2.5,   // 2.5s
		5.0,   // 5s
		10.0,  // 10s
		30.0,  // 30s
		60.0,  // 1min
		120.0, // 2min
		300.0, // 5min
	}

	taskDuration, err := meter.Float64Histogram(
		TaskDurationHistogramName,
		metric.WithDescription("Duration of worker task execution in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(taskLatencyBuckets...),
	)
	if err != nil {
		return nil, err
	}

	submittedTotal, err := meter.Int64Counter(
		TaskSubmittedCounterName,
		metric.WithDescription("Total number of tasks accepted by admission control"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	completedTotal, err := meter.Int64Counter(
		TaskCompletedCounterName,
		metric.WithDescription("Total number of tasks completed successfully"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	failedTotal, err := meter.Int64Counter(
		TaskFailedCounterName,
		metric.WithDescription("Total number of tasks that reached terminal failure"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	retryTotal, err := meter.Int64Counter(
		TaskRetryCounterName,
		metric.WithDescription("Total number of task retry requeues"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	return &TaskMetrics{
		taskDuration:   taskDuration,
		submittedTotal: submittedTotal,
		completedTotal: completedTotal,
		failedTotal:    failedTotal,
		retryTotal:     retryTotal,
	}, nil
}

// RecordSubmitted records a task accepted by admission control.
func (m *TaskMetrics) RecordSubmitted(ctx context.Context, workload string) {
	m.submittedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrWorkload, workload)))
}

// RecordCompleted records a successful task with timing information.
func (m *TaskMetrics) RecordCompleted(ctx context.Context, workload string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String(AttrWorkload, workload))
	m.taskDuration.Record(ctx, duration.Seconds(), attrs)
	m.completedTotal.Add(ctx, 1, attrs)
}

// RecordFailed records a terminal task failure with timing information.
func (m *TaskMetrics) RecordFailed(ctx context.Context, workload string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String(AttrWorkload, workload))
	m.taskDuration.Record(ctx, duration.Seconds(), attrs)
	m.failedTotal.Add(ctx, 1, attrs)
}

// RecordRetry records a retry requeue.
func (m *TaskMetrics) RecordRetry(ctx context.Context, workload string, retryAttempt int) {
	m.retryTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrWorkload, workload),
		attribute.Int(AttrRetryAttempt, retryAttempt),
	))
}
