package solver

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridsim/core/scheduler"
	"github.com/kilianp07/gridsim/core/variant"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func newExecutor(t *testing.T, script string, mutate ...func(*Config)) *ProcessExecutor {
	t.Helper()
	requireShell(t)
	cfg := Config{Command: "sh", Args: []string{"-c", script}}
	for _, m := range mutate {
		m(&cfg)
	}
	e, err := NewProcessExecutor(cfg, nil)
	require.NoError(t, err)
	return e
}

var task = scheduler.Task{RunID: "r1", Version: 2, Chunk: 1, Range: variant.Range{First: 10, Last: 14}}

func TestExecuteSuccessExpandsArgs(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	dir := t.TempDir()
	e := newExecutor(t, "echo {first} {last} {count} {version} {chunk} > args.txt")

	report, err := e.Execute(context.Background(), dir, task)
	require.NoError(t, err)
	assert.False(t, report.Failed())
	assert.Equal(t, 0, report.ExitCode)

	b, err := os.ReadFile(filepath.Join(dir, "args.txt"))
	require.NoError(t, err)
	assert.Equal(t, "10 14 5 2 1", strings.TrimSpace(string(b)))
	assert.Equal(t, 1.0, testutil.ToFloat64(processRuns.WithLabelValues("ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(slotsInUse))
}

func TestExecuteEnvironment(t *testing.T) {
	dir := t.TempDir()
	e := newExecutor(t, `echo "$METRIX_VERSION $METRIX_FIRST_VARIANT $GRID_MODE" > env.txt`,
		func(c *Config) { c.Env = map[string]string{"GRID_MODE": "ac"} })

	_, err := e.Execute(context.Background(), dir, task)
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dir, "env.txt"))
	require.NoError(t, err)
	assert.Equal(t, "2 10 ac", strings.TrimSpace(string(b)))
}

func TestExecuteNonZeroExit(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	dir := t.TempDir()
	e := newExecutor(t, "echo divergence >&2; exit 3")

	report, err := e.Execute(context.Background(), dir, task)
	require.NoError(t, err)
	require.True(t, report.Failed())
	assert.Equal(t, 3, report.ExitCode)
	assert.Contains(t, report.Errors[0].Error(), "divergence")
	assert.Equal(t, 1.0, testutil.ToFloat64(processRuns.WithLabelValues("failed")))
}

func TestExecuteTimeout(t *testing.T) {
	dir := t.TempDir()
	e := newExecutor(t, "sleep 5")
	e.timeout = 50 * time.Millisecond

	report, err := e.Execute(context.Background(), dir, task)
	require.NoError(t, err)
	require.True(t, report.Failed())
	assert.ErrorIs(t, report.Errors[0], ErrTimeout)
}

func TestExecuteWaitsForSlot(t *testing.T) {
	e := newExecutor(t, "true")
	require.NoError(t, e.sem.Acquire(context.Background(), 1))
	defer e.sem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := e.Execute(ctx, t.TempDir(), task)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecuteCommandNotFound(t *testing.T) {
	e, err := NewProcessExecutor(Config{Command: "/nonexistent/metrix"}, nil)
	require.NoError(t, err)
	_, err = e.Execute(context.Background(), t.TempDir(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, context.Canceled))
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"ok", Config{Command: "metrix", MaxParallel: 2}, true},
		{"no command", Config{MaxParallel: 1}, false},
		{"parallel", Config{Command: "metrix", MaxParallel: -1}, false},
		{"timeout", Config{Command: "metrix", MaxParallel: 1, TimeoutSeconds: -1}, false},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if (err == nil) != tc.ok {
			t.Fatalf("%s: unexpected result %v", tc.name, err)
		}
	}
	var c Config
	c.SetDefaults()
	if c.MaxParallel != 1 || c.OutputFile != "solver.out" {
		t.Fatalf("defaults not applied: %+v", c)
	}
}

func TestCopyInputGenerator(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "fort.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "network.txt"), []byte("net"), 0o644))

	dst := t.TempDir()
	require.NoError(t, CopyInputGenerator{Dir: src}.Generate(context.Background(), dst, task))

	b, err := os.ReadFile(filepath.Join(dst, "sub", "network.txt"))
	require.NoError(t, err)
	assert.Equal(t, "net", string(b))
	assert.FileExists(t, filepath.Join(dst, "fort.json"))

	require.NoError(t, CopyInputGenerator{}.Generate(context.Background(), dst, task))
	assert.Error(t, CopyInputGenerator{Dir: filepath.Join(src, "missing")}.Generate(context.Background(), dst, task))
}
