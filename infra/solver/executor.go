package solver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kilianp07/gridsim/core/scheduler"
	"github.com/kilianp07/gridsim/infra/logger"
)

// ErrTimeout is reported when the solver process exceeded its timeout.
var ErrTimeout = errors.New("solver timeout")

// tailSize bounds the process output quoted in execution errors.
const tailSize = 2048

// ProcessExecutor runs the solver as an external process, at most
// MaxParallel at a time.
type ProcessExecutor struct {
	cfg     Config
	timeout time.Duration
	sem     *semaphore.Weighted
	log     logger.Logger
}

// NewProcessExecutor validates cfg and builds the executor.
func NewProcessExecutor(cfg Config, log logger.Logger) (*ProcessExecutor, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &ProcessExecutor{
		cfg:     cfg,
		timeout: cfg.Timeout(),
		sem:     semaphore.NewWeighted(int64(cfg.MaxParallel)),
		log:     log,
	}, nil
}

// Execute waits for a free slot, then runs the solver inside dir. It returns
// an error when the process could not be started or ctx ended; a process
// that ran and failed is described by the report.
func (e *ProcessExecutor) Execute(ctx context.Context, dir string, t scheduler.Task) (scheduler.ExecutionReport, error) {
	waitStart := time.Now()
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return scheduler.ExecutionReport{}, fmt.Errorf("wait for solver slot: %w", err)
	}
	defer e.sem.Release(1)
	slotWait.Observe(time.Since(waitStart).Seconds())
	slotsInUse.Inc()
	defer slotsInUse.Dec()

	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	outPath := filepath.Join(dir, e.cfg.OutputFile)
	out, err := os.Create(outPath)
	if err != nil {
		return scheduler.ExecutionReport{}, fmt.Errorf("create solver output: %w", err)
	}
	defer out.Close()

	cmd := exec.CommandContext(runCtx, e.cfg.Command, expandArgs(e.cfg.Args, dir, t)...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), e.environ(t)...)
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.WaitDelay = time.Second

	e.log.Debugf("running %s for %s", e.cfg.Command, t)
	start := time.Now()
	runErr := cmd.Run()
	report := scheduler.ExecutionReport{Duration: time.Since(start)}
	if runErr == nil {
		processRuns.WithLabelValues("ok").Inc()
		return report, nil
	}

	var exitErr *exec.ExitError
	switch {
	case ctx.Err() != nil:
		processRuns.WithLabelValues("cancelled").Inc()
		return report, ctx.Err()
	case runCtx.Err() != nil:
		processRuns.WithLabelValues("timeout").Inc()
		report.ExitCode = -1
		report.Errors = []error{fmt.Errorf("%w after %s", ErrTimeout, e.timeout)}
		return report, nil
	case errors.As(runErr, &exitErr):
		processRuns.WithLabelValues("failed").Inc()
		report.ExitCode = exitErr.ExitCode()
		msg := fmt.Sprintf("solver exited with code %d", report.ExitCode)
		if tail := readTail(outPath, tailSize); tail != "" {
			msg += ": " + tail
		}
		report.Errors = []error{errors.New(msg)}
		return report, nil
	default:
		processRuns.WithLabelValues("not_started").Inc()
		return report, fmt.Errorf("start solver: %w", runErr)
	}
}

func (e *ProcessExecutor) environ(t scheduler.Task) []string {
	env := []string{
		"METRIX_RUN_ID=" + t.RunID,
		"METRIX_VERSION=" + strconv.Itoa(t.Version),
		"METRIX_CHUNK=" + strconv.Itoa(t.Chunk),
		"METRIX_FIRST_VARIANT=" + strconv.Itoa(t.Range.First),
		"METRIX_LAST_VARIANT=" + strconv.Itoa(t.Range.Last),
	}
	keys := make([]string, 0, len(e.cfg.Env))
	for k := range e.cfg.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+e.cfg.Env[k])
	}
	return env
}

func expandArgs(args []string, dir string, t scheduler.Task) []string {
	r := strings.NewReplacer(
		"{dir}", dir,
		"{first}", strconv.Itoa(t.Range.First),
		"{last}", strconv.Itoa(t.Range.Last),
		"{count}", strconv.Itoa(t.Range.Len()),
		"{version}", strconv.Itoa(t.Version),
		"{chunk}", strconv.Itoa(t.Chunk),
	)
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = r.Replace(a)
	}
	return out
}

// readTail returns at most n trailing bytes of the file, trimmed.
func readTail(path string, n int64) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return ""
	}
	if info.Size() > n {
		if _, err := f.Seek(info.Size()-n, io.SeekStart); err != nil {
			return ""
		}
	}
	b, err := io.ReadAll(f)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
