package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/kilianp07/gridsim/core/events"
	"github.com/kilianp07/gridsim/core/result"
	"github.com/kilianp07/gridsim/core/runlog"
	"github.com/kilianp07/gridsim/core/scheduler"
	"github.com/kilianp07/gridsim/core/timeseries"
	"github.com/kilianp07/gridsim/core/variant"
	"github.com/kilianp07/gridsim/internal/eventbus"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeExecutor writes one LOSSES line per variant, or reports an execution
// error for the chunk listed in fail.
type fakeExecutor struct {
	fail int
}

func (f fakeExecutor) Execute(_ context.Context, dir string, t scheduler.Task) (scheduler.ExecutionReport, error) {
	if t.Chunk == f.fail {
		return scheduler.ExecutionReport{ExitCode: 1, Errors: []error{errors.New("solver error")}}, nil
	}
	for v := t.Range.First; v <= t.Range.Last; v++ {
		line := fmt.Sprintf("R8 ;;%d", v)
		if err := os.WriteFile(filepath.Join(dir, result.FileName(v)), []byte(line), 0o644); err != nil {
			return scheduler.ExecutionReport{}, err
		}
	}
	return scheduler.ExecutionReport{}, nil
}

type recordingListener struct {
	mu     sync.Mutex
	calls  []string
	chunks map[int]int
}

func (r *recordingListener) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recordingListener) OnBegin()             { r.add("begin") }
func (r *recordingListener) OnVersionBegin(v int) { r.add(fmt.Sprintf("version-begin %d", v)) }
func (r *recordingListener) OnVersionEnd(v int)   { r.add(fmt.Sprintf("version-end %d", v)) }
func (r *recordingListener) OnEnd()               { r.add("end") }
func (r *recordingListener) OnChunkResult(v, c int, _ []timeseries.Series) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.chunks == nil {
		r.chunks = make(map[int]int)
	}
	r.chunks[v]++
	r.calls = append(r.calls, fmt.Sprintf("chunk %d/%d", v, c))
}

func (r *recordingListener) index(call string) int {
	for i, c := range r.calls {
		if c == call {
			return i
		}
	}
	return -1
}

func newScheduler(t *testing.T, fail int) *scheduler.Scheduler {
	return scheduler.New(fakeExecutor{fail: fail}, scheduler.WithWorkspace(scheduler.TempWorkspace{Root: t.TempDir()}))
}

func TestRunDeliversAllButFailingChunk(t *testing.T) {
	plan, err := variant.NewSinglePlan(0, 9, 2)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	l := &recordingListener{}
	c := New(newScheduler(t, 3))
	if c.State() != StateIdle {
		t.Fatalf("expected idle, got %s", c.State())
	}

	rep, err := c.Run(context.Background(), []int{1, 2}, plan, l)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if c.State() != StateDone {
		t.Fatalf("expected done, got %s", c.State())
	}
	if len(rep.Chunks) != 10 {
		t.Fatalf("expected 10 chunk reports, got %d", len(rep.Chunks))
	}
	if rep.Succeeded() != 8 || l.chunks[1] != 4 || l.chunks[2] != 4 {
		t.Fatalf("expected 4 callbacks per version, got %v (succeeded %d)", l.chunks, rep.Succeeded())
	}
	failed := rep.Failed()
	if len(failed) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(failed))
	}
	for _, f := range failed {
		if f.Task.Chunk != 3 || f.Outcome != scheduler.OutcomeExecutionFailed || !errors.Is(f.Err, scheduler.ErrExecutionFailed) {
			t.Fatalf("unexpected failure report %+v", f)
		}
	}
	for i := 1; i < len(rep.Chunks); i++ {
		a, b := rep.Chunks[i-1].Task, rep.Chunks[i].Task
		if a.Version > b.Version || (a.Version == b.Version && a.Chunk >= b.Chunk) {
			t.Fatalf("reports not ordered at %d", i)
		}
	}
}

func TestListenerCallbackOrder(t *testing.T) {
	plan, _ := variant.NewSinglePlan(0, 5, 2)
	l := &recordingListener{}
	if _, err := New(newScheduler(t, -2)).Run(context.Background(), []int{7}, plan, l); err != nil {
		t.Fatalf("run: %v", err)
	}
	if l.calls[0] != "begin" || l.calls[len(l.calls)-1] != "end" {
		t.Fatalf("unexpected bracket calls %v", l.calls)
	}
	begin, end := l.index("version-begin 7"), l.index("version-end 7")
	for chunk := 0; chunk < 3; chunk++ {
		i := l.index(fmt.Sprintf("chunk 7/%d", chunk))
		if i < begin || i > end {
			t.Fatalf("chunk %d callback outside version bracket: %v", chunk, l.calls)
		}
	}
}

func TestRunOnlyOnce(t *testing.T) {
	plan, _ := variant.NewSinglePlan(0, 0, 1)
	c := New(newScheduler(t, -2))
	if _, err := c.Run(context.Background(), []int{1}, plan, nil); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := c.Run(context.Background(), []int{1}, plan, nil); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
	if _, err := New(newScheduler(t, -2)).Run(context.Background(), nil, nil, nil); !errors.Is(err, ErrNoPlan) {
		t.Fatalf("expected ErrNoPlan, got %v", err)
	}
}

func TestCancelledRunWaitsForTasks(t *testing.T) {
	plan, _ := variant.NewSinglePlan(0, 3, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := &recordingListener{}
	rep, err := New(newScheduler(t, -2)).Run(ctx, []int{1}, plan, l)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(rep.Chunks) != 4 || len(rep.Failed()) != 4 {
		t.Fatalf("expected 4 cancelled chunks, got %+v", rep.Chunks)
	}
	for _, c := range rep.Chunks {
		if c.Outcome != scheduler.OutcomeCancelled {
			t.Fatalf("expected cancelled outcome, got %s", c.Outcome)
		}
	}
	if l.chunks[1] != 0 || l.calls[len(l.calls)-1] != "end" {
		t.Fatalf("unexpected callbacks %v", l.calls)
	}
}

func TestRunLogAndEvents(t *testing.T) {
	store, err := runlog.NewJSONLStore(filepath.Join(t.TempDir(), "runs.jsonl"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	bus := eventbus.New[events.Event]()
	defer bus.Close()
	sub := bus.Subscribe()

	plan, _ := variant.NewPlan([]variant.Range{{First: 0, Last: 2}, {First: 10, Last: 11}}, 2)
	c := New(newScheduler(t, 1), WithRunLog(store), WithPublisher(bus), WithRunID("run-42"))
	if _, err := c.Run(context.Background(), []int{3}, plan, nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	recs, err := store.Query(context.Background(), runlog.Query{RunID: "run-42"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	failed, _ := store.Query(context.Background(), runlog.Query{Outcome: "execution_failed"})
	if len(failed) != 1 || failed[0].First != 2 || failed[0].Error == "" {
		t.Fatalf("unexpected failed records %+v", failed)
	}

	ev := (<-sub).(events.RunFinished)
	if ev.RunID != "run-42" || ev.Chunks != 3 || ev.Failed != 1 {
		t.Fatalf("unexpected run event %+v", ev)
	}
}

func TestMultiListener(t *testing.T) {
	a, b := &recordingListener{}, &recordingListener{}
	m := MultiListener{a, b, NopListener{}}
	m.OnBegin()
	m.OnVersionBegin(1)
	m.OnChunkResult(1, 0, nil)
	m.OnVersionEnd(1)
	m.OnEnd()
	if len(a.calls) != 5 || len(b.calls) != 5 {
		t.Fatalf("expected 5 calls each, got %d and %d", len(a.calls), len(b.calls))
	}
}
