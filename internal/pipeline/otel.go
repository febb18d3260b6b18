package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"finpulse/internal/infrastructure"
)

// RunTracer creates the spans of a run and records step metrics
type RunTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.RunMetrics
}

// NewRunTracer builds a tracer from the process providers. Nil providers
// produce a no-op tracer without metrics.
func NewRunTracer(providers *infrastructure.OTelProviders) *RunTracer {
	if providers == nil {
		return &RunTracer{tracer: tracenoop.NewTracerProvider().Tracer(infrastructure.InstrumentationName)}
	}
	return &RunTracer{tracer: providers.Tracer, metrics: providers.Metrics}
}

// Metrics returns the run instruments, nil when telemetry is disabled
func (t *RunTracer) Metrics() *infrastructure.RunMetrics {
	return t.metrics
}

// TraceRun starts the root span of a run
func (t *RunTracer) TraceRun(ctx context.Context, runID string, steps int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("run.steps", steps),
		),
	)
}

// TraceStep starts the span of one step
func (t *RunTracer) TraceStep(ctx context.Context, runID string, step Step) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, step.ID(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("step.id", step.ID()),
			attribute.String("step.name", step.Name()),
		),
	)
}

// RecordStepCompletion ends a step span and records its duration metric
func (t *RunTracer) RecordStepCompletion(ctx context.Context, span trace.Span, stepID string, duration time.Duration, err error) {
	span.SetAttributes(attribute.Float64("step.duration_seconds", duration.Seconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.type", string(GetErrorType(err))))
	} else {
		span.SetStatus(codes.Ok, "step completed")
	}
	infrastructure.RecordStepMetrics(ctx, t.metrics, stepID, duration, err == nil)
	span.End()
}

// RecordRunCompletion ends the run span and records the run metrics
func (t *RunTracer) RecordRunCompletion(ctx context.Context, span trace.Span, state *RunState) {
	err := state.Err()
	span.SetAttributes(
		attribute.String("run.status", string(state.Status())),
		attribute.Float64("run.duration_seconds", state.Duration().Seconds()),
		attribute.Int("run.artifacts", len(state.ArtifactKeys())),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, fmt.Sprintf("run %s", state.Status()))
	} else {
		span.SetStatus(codes.Ok, "run completed")
	}
	infrastructure.RecordRunMetrics(ctx, t.metrics, state.Duration(), err)
	span.End()
}
