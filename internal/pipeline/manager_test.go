package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finpulse/internal/shared/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingStep appends its ID to a shared log and returns err
type recordingStep struct {
	BaseStep
	log         *[]string
	mu          *sync.Mutex
	err         error
	validateErr error
	block       bool
}

func newRecordingStep(id string, log *[]string, mu *sync.Mutex) *recordingStep {
	return &recordingStep{BaseStep: NewBaseStep(id, "step "+id), log: log, mu: mu}
}

func (s *recordingStep) Validate(*RunState) error {
	return s.validateErr
}

func (s *recordingStep) Execute(ctx context.Context, state *RunState) error {
	s.mu.Lock()
	*s.log = append(*s.log, s.ID())
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.err
}

func newTestManager(t *testing.T, opts Options, steps ...Step) *Manager {
	t.Helper()
	registry, err := register(steps...)
	require.NoError(t, err)
	return NewManager(registry, nil, opts, quietLogger())
}

func statuses(state *RunState) map[string]StepStatus {
	out := make(map[string]StepStatus)
	for _, s := range state.Steps() {
		out[s.ID] = s.Status
	}
	return out
}

func TestRegistry_Register(t *testing.T) {
	var log []string
	var mu sync.Mutex

	r := NewRegistry()
	require.NoError(t, r.Register(newRecordingStep("a", &log, &mu)))
	require.NoError(t, r.Register(newRecordingStep("b", &log, &mu)))

	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(newRecordingStep("", &log, &mu)))
	assert.Error(t, r.Register(newRecordingStep("a", &log, &mu)))

	assert.Equal(t, 2, r.Count())
	ids := make([]string, 0, 2)
	for _, s := range r.Steps() {
		ids = append(ids, s.ID())
	}
	assert.Equal(t, []string{"a", "b"}, ids)

	step, err := r.Get("b")
	require.NoError(t, err)
	assert.Equal(t, "step b", step.Name())
	_, err = r.Get("missing")
	assert.Error(t, err)
}

func TestManager_RunsStepsInOrder(t *testing.T) {
	var log []string
	var mu sync.Mutex
	m := newTestManager(t, Options{},
		newRecordingStep("first", &log, &mu),
		newRecordingStep("second", &log, &mu),
		newRecordingStep("third", &log, &mu),
	)

	state, err := m.Run(context.Background(), "run-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second", "third"}, log)
	assert.Equal(t, "run-1", state.ID)
	assert.Equal(t, RunStatusCompleted, state.Status())
	assert.NoError(t, state.Err())

	snaps := state.Steps()
	require.Len(t, snaps, 3)
	for i, id := range []string{"first", "second", "third"} {
		assert.Equal(t, id, snaps[i].ID)
		assert.Equal(t, StepStatusCompleted, snaps[i].Status)
		assert.NotNil(t, snaps[i].StartTime)
		assert.NotNil(t, snaps[i].EndTime)
	}
}

func TestManager_GeneratesRunID(t *testing.T) {
	var log []string
	var mu sync.Mutex
	m := newTestManager(t, Options{}, newRecordingStep("only", &log, &mu))

	state, err := m.Run(context.Background(), "")
	require.NoError(t, err)
	_, err = uuid.Parse(state.ID)
	assert.NoError(t, err)
}

func TestManager_FailureSkipsRemaining(t *testing.T) {
	var log []string
	var mu sync.Mutex
	failing := newRecordingStep("second", &log, &mu)
	failing.err = errors.New("disk full")

	m := newTestManager(t, Options{},
		newRecordingStep("first", &log, &mu),
		failing,
		newRecordingStep("third", &log, &mu),
	)

	state, err := m.Run(context.Background(), "run-2")
	require.Error(t, err)

	assert.Equal(t, ErrorTypeExecution, GetErrorType(err))
	assert.Equal(t, "second", FailedStep(err))
	assert.Contains(t, err.Error(), "disk full")
	assert.ErrorIs(t, err, failing.err)

	assert.Equal(t, []string{"first", "second"}, log)
	assert.Equal(t, RunStatusFailed, state.Status())
	assert.Equal(t, map[string]StepStatus{
		"first":  StepStatusCompleted,
		"second": StepStatusFailed,
		"third":  StepStatusSkipped,
	}, statuses(state))

	snaps := state.Steps()
	assert.Contains(t, snaps[1].Error, "disk full")
	assert.Equal(t, "step second failed", snaps[2].Message)
}

func TestManager_LogsRunEvents(t *testing.T) {
	var log []string
	var mu sync.Mutex
	failing := newRecordingStep("second", &log, &mu)
	failing.err = errors.New("disk full")

	registry, err := register(newRecordingStep("first", &log, &mu), failing)
	require.NoError(t, err)
	logger, handler := testutil.NewTestLogger(t)

	_, err = NewManager(registry, nil, Options{}, logger).Run(context.Background(), "run-logs")
	require.Error(t, err)

	start, ok := handler.Find("run_start")
	require.True(t, ok)
	assert.Equal(t, "pipeline", start.Attrs["component"])
	assert.Equal(t, int64(2), start.Attrs["step_count"])

	testutil.AssertLogContains(t, handler, slog.LevelInfo, "step_completed")
	testutil.AssertLogContains(t, handler, slog.LevelError, "step_execution_failed")

	failed, ok := handler.Find("run_failed")
	require.True(t, ok)
	assert.Equal(t, "second", failed.Attrs["step"])
	assert.Equal(t, "run-logs", failed.Attrs["run_id"])
}

func TestManager_ValidationFailure(t *testing.T) {
	var log []string
	var mu sync.Mutex
	invalid := newRecordingStep("first", &log, &mu)
	invalid.validateErr = errors.New("no dataset")

	m := newTestManager(t, Options{}, invalid, newRecordingStep("second", &log, &mu))

	state, err := m.Run(context.Background(), "run-3")
	require.Error(t, err)

	assert.Equal(t, ErrorTypeValidation, GetErrorType(err))
	assert.Equal(t, "first", FailedStep(err))
	assert.Empty(t, log, "Execute must not run after a failed validation")
	assert.Equal(t, map[string]StepStatus{
		"first":  StepStatusFailed,
		"second": StepStatusSkipped,
	}, statuses(state))
}

func TestManager_Cancelled(t *testing.T) {
	var log []string
	var mu sync.Mutex
	m := newTestManager(t, Options{},
		newRecordingStep("first", &log, &mu),
		newRecordingStep("second", &log, &mu),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state, err := m.Run(ctx, "run-4")
	require.Error(t, err)

	assert.Equal(t, ErrorTypeCancellation, GetErrorType(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, log)
	assert.Equal(t, RunStatusCancelled, state.Status())
	assert.Equal(t, map[string]StepStatus{
		"first":  StepStatusSkipped,
		"second": StepStatusSkipped,
	}, statuses(state))
}

func TestManager_StepTimeout(t *testing.T) {
	var log []string
	var mu sync.Mutex
	slow := newRecordingStep("slow", &log, &mu)
	slow.block = true

	m := newTestManager(t, Options{StepTimeouts: map[string]time.Duration{"slow": 20 * time.Millisecond}},
		slow,
		newRecordingStep("after", &log, &mu),
	)

	state, err := m.Run(context.Background(), "run-5")
	require.Error(t, err)

	assert.Equal(t, ErrorTypeTimeout, GetErrorType(err))
	assert.Equal(t, "slow", FailedStep(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, RunStatusFailed, state.Status())
	assert.Equal(t, StepStatusSkipped, state.Step("after").Status())
}

func TestManager_NoSteps(t *testing.T) {
	m := NewManager(NewRegistry(), nil, Options{}, quietLogger())

	state, err := m.Run(context.Background(), "run-6")
	require.Error(t, err)
	assert.Equal(t, ErrorTypeFatal, GetErrorType(err))
	assert.Equal(t, RunStatusFailed, state.Status())
}

func TestOptions_GetStepTimeout(t *testing.T) {
	opts := Options{
		StepTimeout:  time.Minute,
		StepTimeouts: map[string]time.Duration{StepIDReport: time.Second},
	}
	assert.Equal(t, time.Second, opts.GetStepTimeout(StepIDReport))
	assert.Equal(t, time.Minute, opts.GetStepTimeout(StepIDAnalyze))
	assert.Zero(t, Options{}.GetStepTimeout(StepIDAnalyze))
}

func TestOperationError_Format(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  *OperationError
		want string
	}{
		{"with step", NewExecutionError("export", cause), "[execution] export: step execution failed: boom"},
		{"without step", NewFatalError("no steps registered", nil), "[fatal] no steps registered"},
		{"timeout", NewTimeoutError("analyze", "1s", nil), "[timeout] analyze: step exceeded timeout of 1s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}

	assert.Equal(t, ErrorType(""), GetErrorType(cause))
	assert.Empty(t, FailedStep(cause))
}
