package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Registry holds all domain-specific metrics for the application
type Registry struct {
	meter metric.Meter

	// Authentication metrics
	AttemptCounter     metric.Int64Counter
	CombinedScore      metric.Float64Histogram
	LockoutCounter     metric.Int64Counter
	EnrollmentCounter  metric.Int64Counter
	AlternativeCounter metric.Int64Counter

	// Detector metrics
	DetectorLatency      metric.Float64Histogram
	DetectorErrorCounter metric.Int64Counter
}

// NewRegistry creates and registers all application metrics
func NewRegistry() (*Registry, error) {
	meter := otel.Meter("voicegate")
	r := &Registry{meter: meter}

	var err error

	r.AttemptCounter, err = meter.Int64Counter(
		"voicegate.auth.attempts",
		metric.WithDescription("Authentication attempts by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create attempt counter: %w", err)
	}

	r.CombinedScore, err = meter.Float64Histogram(
		"voicegate.auth.combined_score",
		metric.WithDescription("Combined confidence score distribution"),
	)
	if err != nil {
		return nil, fmt.Errorf("create score histogram: %w", err)
	}

	r.LockoutCounter, err = meter.Int64Counter(
		"voicegate.auth.lockouts",
		metric.WithDescription("User lockouts from consecutive failures"),
	)
	if err != nil {
		return nil, fmt.Errorf("create lockout counter: %w", err)
	}

	r.EnrollmentCounter, err = meter.Int64Counter(
		"voicegate.auth.enrollments",
		metric.WithDescription("Voice enrollment samples recorded"),
	)
	if err != nil {
		return nil, fmt.Errorf("create enrollment counter: %w", err)
	}

	r.AlternativeCounter, err = meter.Int64Counter(
		"voicegate.auth.alternative_attempts",
		metric.WithDescription("Alternative authentication attempts by method"),
	)
	if err != nil {
		return nil, fmt.Errorf("create alternative counter: %w", err)
	}

	r.DetectorLatency, err = meter.Float64Histogram(
		"voicegate.detector.duration",
		metric.WithDescription("Detector call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create detector latency histogram: %w", err)
	}

	r.DetectorErrorCounter, err = meter.Int64Counter(
		"voicegate.detector.errors",
		metric.WithDescription("Detector failures and timeouts"),
	)
	if err != nil {
		return nil, fmt.Errorf("create detector error counter: %w", err)
	}

	return r, nil
}

// RecordAttempt records one completed authentication attempt.
func (r *Registry) RecordAttempt(ctx context.Context, outcome, level string, critical bool, score float64) {
	attrs := metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("security_level", level),
		attribute.Bool("critical", critical),
	)
	r.AttemptCounter.Add(ctx, 1, attrs)
	r.CombinedScore.Record(ctx, score, attrs)
}

// RecordLockout records a user lockout.
func (r *Registry) RecordLockout(ctx context.Context, level string) {
	r.LockoutCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("security_level", level),
	))
}

// RecordEnrollment records an enrollment sample.
func (r *Registry) RecordEnrollment(ctx context.Context, complete bool) {
	r.EnrollmentCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("complete", complete),
	))
}

// RecordAlternative records an alternative authentication attempt.
func (r *Registry) RecordAlternative(ctx context.Context, method string, ok bool) {
	r.AlternativeCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.Bool("success", ok),
	))
}

// RecordDetector records one detector invocation.
func (r *Registry) RecordDetector(ctx context.Context, detector string, elapsed time.Duration, failed bool) {
	attrs := metric.WithAttributes(attribute.String("detector", detector))
	r.DetectorLatency.Record(ctx, float64(elapsed.Milliseconds()), attrs)
	if failed {
		r.DetectorErrorCounter.Add(ctx, 1, attrs)
	}
}
