package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/gridsim/core/result"
	"github.com/kilianp07/gridsim/core/timeseries"
	"github.com/kilianp07/gridsim/core/variant"
)

// Task identifies the work unit for one chunk of one version.
type Task struct {
	RunID   string
	Version int
	Chunk   int
	Range   variant.Range
	Index   timeseries.Index
}

func (t Task) String() string {
	return fmt.Sprintf("version %d chunk %d %s", t.Version, t.Chunk, t.Range)
}

func (t Task) tags() map[string]string {
	return map[string]string{
		"run_id":  t.RunID,
		"version": fmt.Sprint(t.Version),
		"chunk":   fmt.Sprint(t.Chunk),
	}
}

// ExecutionReport is what the solver run reported. A non-empty Errors list
// means the run failed and its outputs must not be decoded.
type ExecutionReport struct {
	ExitCode int
	Errors   []error
	Duration time.Duration
}

// Failed reports whether the execution reported errors.
func (r ExecutionReport) Failed() bool { return len(r.Errors) > 0 }

// Executor runs the solver for a task inside dir. A returned error means
// the execution could not take place at all; failures of the solver itself
// are listed in the report.
type Executor interface {
	Execute(ctx context.Context, dir string, t Task) (ExecutionReport, error)
}

// InputGenerator writes the solver inputs of a task into dir.
type InputGenerator interface {
	Generate(ctx context.Context, dir string, t Task) error
}

// ResultSink receives the series of each successful chunk. Implementations
// must accept concurrent calls.
type ResultSink interface {
	OnChunkResult(version, chunk int, series []timeseries.Series)
}

// ChunkObserver is notified around the execution and decoding steps of a
// task. Calls for different tasks may be concurrent.
type ChunkObserver interface {
	BeforeExecution(t Task)
	AfterExecution(t Task, report ExecutionReport)
	BeforeDecoding(t Task)
	AfterDecoding(t Task, stats result.ChunkStats)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) BeforeExecution(Task)                  {}
func (NopObserver) AfterExecution(Task, ExecutionReport)  {}
func (NopObserver) BeforeDecoding(Task)                   {}
func (NopObserver) AfterDecoding(Task, result.ChunkStats) {}

// Outcome is the final state of a task.
type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	// OutcomeExecutionFailed: the solver reported errors, nothing was decoded.
	OutcomeExecutionFailed
	// OutcomeFailed: the task could not run or its outputs were unusable.
	OutcomeFailed
	// OutcomeCancelled: the run context ended; results were not delivered.
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeExecutionFailed:
		return "execution_failed"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// ErrExecutionFailed is matched by errors of tasks whose solver run
// reported errors.
var ErrExecutionFailed = errors.New("execution failed")

// ExecutionError carries the errors reported by the solver run.
type ExecutionError struct {
	ExitCode int
	Errors   []error
}

func (e *ExecutionError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("execution failed (exit code %d): %s", e.ExitCode, strings.Join(msgs, "; "))
}

func (e *ExecutionError) Unwrap() []error {
	return append([]error{ErrExecutionFailed}, e.Errors...)
}

// Report describes how a task ended.
type Report struct {
	Task      Task
	Outcome   Outcome
	Stats     result.ChunkStats
	Series    int
	Artifacts []string
	Err       error
	Started   time.Time
	Duration  time.Duration
}

// Handle gives access to the completion of a submitted task.
type Handle struct {
	task   Task
	done   chan struct{}
	report Report
}

func newHandle(t Task) *Handle {
	return &Handle{task: t, done: make(chan struct{})}
}

func (h *Handle) finish(r Report) {
	h.report = r
	close(h.done)
}

// Task returns the submitted task.
func (h *Handle) Task() Task { return h.task }

// Done is closed once the task reached its outcome.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the task ends or ctx is done. The error is the task
// error when the outcome is not OutcomeSucceeded, or ctx.Err() when ctx
// ended first.
func (h *Handle) Wait(ctx context.Context) (Report, error) {
	select {
	case <-h.done:
		return h.report, h.report.Err
	case <-ctx.Done():
		return Report{Task: h.task}, ctx.Err()
	}
}
