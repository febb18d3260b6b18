package pipeline

import (
	"sort"
	"sync"
	"time"

	"finpulse/internal/analysis"
	"finpulse/internal/dataset"
	"finpulse/internal/reporting"
)

// RunStatus is the overall status of a run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Artifact keys
const (
	ArtifactDatasetCSV   = "dataset_csv"
	ArtifactDatasetXLSX  = "dataset_xlsx"
	ArtifactExtendedCSV  = "extended_csv"
	ArtifactExtendedXLSX = "extended_xlsx"
	ArtifactReportJSON   = "report_json"
	ArtifactReportXLSX   = "report_xlsx"
	ArtifactSummary      = "summary"
)

// RunState carries the data of one run from step to step
type RunState struct {
	mu sync.RWMutex

	ID        string
	status    RunStatus
	startTime time.Time
	endTime   time.Time
	err       error

	steps map[string]*StepState
	order []string

	base      *dataset.Dataset
	extended  *dataset.Dataset
	report    *analysis.Report
	bundle    *reporting.Bundle
	artifacts map[string]string
}

// NewRunState creates a pending run
func NewRunState(id string) *RunState {
	return &RunState{
		ID:        id,
		status:    RunStatusPending,
		steps:     make(map[string]*StepState),
		artifacts: make(map[string]string),
	}
}

// Start marks the run as running
func (r *RunState) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = RunStatusRunning
	r.startTime = time.Now()
}

// Complete marks the run as completed
func (r *RunState) Complete() {
	r.finish(RunStatusCompleted, nil)
}

// Fail marks the run as failed
func (r *RunState) Fail(err error) {
	r.finish(RunStatusFailed, err)
}

// Cancel marks the run as cancelled
func (r *RunState) Cancel(err error) {
	r.finish(RunStatusCancelled, err)
}

func (r *RunState) finish(status RunStatus, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endTime = time.Now()
	r.status = status
	r.err = err
}

// Status returns the run status
func (r *RunState) Status() RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Err returns the error that ended the run, if any
func (r *RunState) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// Duration returns the duration of the run
func (r *RunState) Duration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.startTime.IsZero() {
		return 0
	}
	if !r.endTime.IsZero() {
		return r.endTime.Sub(r.startTime)
	}
	return time.Since(r.startTime)
}

func (r *RunState) addStep(step *StepState, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps[id] = step
	r.order = append(r.order, id)
}

// Step returns the state of a specific Step
func (r *RunState) Step(id string) *StepState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.steps[id]
}

// Steps returns snapshots of every Step in execution order
func (r *RunState) Steps() []StepSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]StepSnapshot, len(r.order))
	for i, id := range r.order {
		out[i] = r.steps[id].Snapshot()
	}
	return out
}

// SetDataset stores the single-period dataset
func (r *RunState) SetDataset(ds *dataset.Dataset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.base = ds
}

// Dataset returns the single-period dataset
func (r *RunState) Dataset() *dataset.Dataset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.base
}

// SetExtended stores the multi-period dataset
func (r *RunState) SetExtended(ds *dataset.Dataset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extended = ds
}

// Extended returns the multi-period dataset
func (r *RunState) Extended() *dataset.Dataset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.extended
}

// SetReport stores the analysis report
func (r *RunState) SetReport(report *analysis.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report = report
}

// Report returns the analysis report
func (r *RunState) Report() *analysis.Report {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.report
}

// SetBundle stores the report bundle
func (r *RunState) SetBundle(b *reporting.Bundle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bundle = b
}

// Bundle returns the report bundle
func (r *RunState) Bundle() *reporting.Bundle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bundle
}

// AddArtifact records a file written by the run
func (r *RunState) AddArtifact(key, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.artifacts[key] = path
}

// Artifacts returns a copy of every recorded file
func (r *RunState) Artifacts() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.artifacts))
	for k, v := range r.artifacts {
		out[k] = v
	}
	return out
}

// ArtifactKeys returns the recorded artifact keys in sorted order
func (r *RunState) ArtifactKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.artifacts))
	for k := range r.artifacts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
