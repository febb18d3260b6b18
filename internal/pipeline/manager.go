package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"finpulse/internal/infrastructure"
)

// Options controls step execution
type Options struct {
	// StepTimeout bounds every step without an entry in StepTimeouts.
	// Zero means no limit.
	StepTimeout time.Duration

	// StepTimeouts overrides the timeout of individual steps by ID
	StepTimeouts map[string]time.Duration
}

// GetStepTimeout returns the timeout for a specific step
func (o Options) GetStepTimeout(stepID string) time.Duration {
	if timeout, ok := o.StepTimeouts[stepID]; ok {
		return timeout
	}
	return o.StepTimeout
}

// Manager runs the registered steps of a pipeline in order
type Manager struct {
	registry *Registry
	tracer   *RunTracer
	opts     Options
	logger   *slog.Logger
}

// NewManager creates a manager. A nil tracer disables spans and metrics.
func NewManager(registry *Registry, tracer *RunTracer, opts Options, logger *slog.Logger) *Manager {
	if tracer == nil {
		tracer = NewRunTracer(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		registry: registry,
		tracer:   tracer,
		opts:     opts,
		logger:   infrastructure.WithComponent(logger, "pipeline"),
	}
}

// Run executes every registered step against a fresh RunState. An empty
// runID is replaced by a new UUID. The state is returned even when the run
// fails so callers can inspect which steps completed.
func (m *Manager) Run(ctx context.Context, runID string) (*RunState, error) {
	if runID == "" {
		runID = uuid.New().String()
	}
	ctx = infrastructure.WithTraceID(ctx, runID)

	steps := m.registry.Steps()
	state := NewRunState(runID)
	for _, step := range steps {
		state.addStep(NewStepState(step.ID(), step.Name()), step.ID())
	}

	ctx, span := m.tracer.TraceRun(ctx, runID, len(steps))
	state.Start()
	m.logger.InfoContext(ctx, "run_start",
		slog.String("run_id", runID),
		slog.Int("step_count", len(steps)))

	if len(steps) == 0 {
		err := NewFatalError("no steps registered", nil)
		state.Fail(err)
		m.tracer.RecordRunCompletion(ctx, span, state)
		return state, err
	}

	err := m.executeSequential(ctx, state, steps)
	switch {
	case err == nil:
		state.Complete()
		m.logger.InfoContext(ctx, "run_completed",
			slog.String("run_id", runID),
			slog.Duration("duration", state.Duration()),
			slog.Int("artifacts", len(state.ArtifactKeys())))
	case GetErrorType(err) == ErrorTypeCancellation:
		state.Cancel(err)
		m.logger.WarnContext(ctx, "run_cancelled",
			slog.String("run_id", runID),
			slog.String("error", err.Error()))
	default:
		state.Fail(err)
		m.logger.ErrorContext(ctx, "run_failed",
			slog.String("run_id", runID),
			slog.String("step", FailedStep(err)),
			slog.String("error", err.Error()))
	}

	m.tracer.RecordRunCompletion(ctx, span, state)
	return state, err
}

func (m *Manager) executeSequential(ctx context.Context, state *RunState, steps []Step) error {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			m.skipRemaining(state, steps[i:], "run cancelled")
			return NewCancellationError(step.ID(), err)
		}

		m.logger.InfoContext(ctx, "executing_step",
			slog.String("run_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("step_number", i+1),
			slog.Int("total_steps", len(steps)))

		if err := m.executeStep(ctx, state, step); err != nil {
			m.skipRemaining(state, steps[i+1:], fmt.Sprintf("step %s failed", step.ID()))
			return err
		}
	}
	return nil
}

func (m *Manager) executeStep(ctx context.Context, state *RunState, step Step) error {
	stepState := state.Step(step.ID())
	stepCtx, span := m.tracer.TraceStep(ctx, state.ID, step)
	stepState.Start()

	if err := step.Validate(state); err != nil {
		opErr := NewValidationError(step.ID(), err)
		stepState.Fail(opErr)
		m.logger.WarnContext(stepCtx, "validation_failed",
			slog.String("run_id", state.ID),
			slog.String("step", step.ID()),
			slog.String("error", err.Error()))
		m.tracer.RecordStepCompletion(stepCtx, span, step.ID(), stepState.Duration(), opErr)
		return opErr
	}

	timeout := m.opts.GetStepTimeout(step.ID())
	execCtx := stepCtx
	if timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(stepCtx, timeout)
		defer cancel()
	}

	start := time.Now()
	err := step.Execute(execCtx, state)
	duration := time.Since(start)

	if err != nil {
		opErr := m.classify(ctx, execCtx, step.ID(), timeout, err)
		stepState.Fail(opErr)
		m.logger.ErrorContext(stepCtx, "step_execution_failed",
			slog.String("run_id", state.ID),
			slog.String("step", step.ID()),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		m.tracer.RecordStepCompletion(stepCtx, span, step.ID(), duration, opErr)
		return opErr
	}

	stepState.Complete()
	m.logger.InfoContext(stepCtx, "step_completed",
		slog.String("run_id", state.ID),
		slog.String("step", step.ID()),
		slog.Duration("duration", duration))
	m.tracer.RecordStepCompletion(stepCtx, span, step.ID(), duration, nil)
	return nil
}

// classify turns a step error into an OperationError. Cancellation of the
// run takes precedence over the step's own deadline.
func (m *Manager) classify(runCtx, execCtx context.Context, stepID string, timeout time.Duration, err error) *OperationError {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		if opErr.Step == "" {
			opErr.Step = stepID
		}
		return opErr
	}
	if runCtx.Err() != nil {
		return NewCancellationError(stepID, err)
	}
	if timeout > 0 && errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		return NewTimeoutError(stepID, timeout.String(), err)
	}
	return NewExecutionError(stepID, err)
}

func (m *Manager) skipRemaining(state *RunState, steps []Step, reason string) {
	for _, step := range steps {
		if s := state.Step(step.ID()); s != nil && s.Status() == StepStatusPending {
			s.Skip(reason)
		}
	}
}
