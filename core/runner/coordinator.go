package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/gridsim/core/events"
	"github.com/kilianp07/gridsim/core/logger"
	"github.com/kilianp07/gridsim/core/runlog"
	"github.com/kilianp07/gridsim/core/scheduler"
	"github.com/kilianp07/gridsim/core/timeseries"
	"github.com/kilianp07/gridsim/core/variant"
)

var (
	// ErrAlreadyStarted is returned when Run is called twice.
	ErrAlreadyStarted = errors.New("coordinator already started")
	// ErrNoPlan is returned when Run is called without a chunk plan.
	ErrNoPlan = errors.New("no chunk plan")
)

// State is the lifecycle position of a Coordinator.
type State int32

const (
	StateIdle State = iota
	StateSubmitting
	StateAwaitingAll
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateAwaitingAll:
		return "awaiting_all"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Submitter starts chunk tasks. *scheduler.Scheduler implements it.
type Submitter interface {
	Submit(ctx context.Context, t scheduler.Task, sink scheduler.ResultSink) *scheduler.Handle
}

// RunReport gathers the chunk reports of a run, ordered by version then
// chunk.
type RunReport struct {
	RunID    string
	Versions []int
	Chunks   []scheduler.Report
	Started  time.Time
	Duration time.Duration
}

// Failed returns the reports of chunks that did not succeed.
func (r RunReport) Failed() []scheduler.Report {
	var out []scheduler.Report
	for _, c := range r.Chunks {
		if c.Outcome != scheduler.OutcomeSucceeded {
			out = append(out, c)
		}
	}
	return out
}

// Succeeded returns how many chunks delivered their results.
func (r RunReport) Succeeded() int { return len(r.Chunks) - len(r.Failed()) }

// Coordinator runs every chunk of every version once. A Coordinator is
// single use.
type Coordinator struct {
	sched     Submitter
	log       logger.Logger
	publisher events.Publisher
	store     runlog.Store
	index     timeseries.Index
	runID     string
	now       func() time.Time
	state     atomic.Int32
}

// Option configures a Coordinator.
type Option func(*Coordinator)

func WithLogger(l logger.Logger) Option { return func(c *Coordinator) { c.log = l } }

func WithPublisher(p events.Publisher) Option { return func(c *Coordinator) { c.publisher = p } }

// WithRunLog appends one record per chunk to s.
func WithRunLog(s runlog.Store) Option { return func(c *Coordinator) { c.store = s } }

// WithIndex sets the time index attached to every produced series.
func WithIndex(i timeseries.Index) Option { return func(c *Coordinator) { c.index = i } }

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option { return func(c *Coordinator) { c.runID = id } }

// New returns an idle Coordinator submitting through sched.
func New(sched Submitter, opts ...Option) *Coordinator {
	c := &Coordinator{
		sched:     sched,
		publisher: events.NopPublisher{},
		store:     runlog.NopStore{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.runID == "" {
		c.runID = uuid.NewString()
	}
	c.log = logger.OrNop(c.log)
	return c
}

// RunID identifies the run in logs, events and the run log.
func (c *Coordinator) RunID() string { return c.runID }

// State returns the current lifecycle state.
func (c *Coordinator) State() State { return State(c.state.Load()) }

// Run submits a task for every version and every chunk of plan, waits for
// all of them and then calls l.OnEnd. A failing chunk never stops its
// siblings; failures are listed in the returned report. Cancelling ctx
// cancels every task; Run still waits for them and returns ctx.Err().
func (c *Coordinator) Run(ctx context.Context, versions []int, plan *variant.Plan, l Listener) (RunReport, error) {
	if plan == nil {
		return RunReport{}, ErrNoPlan
	}
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateSubmitting)) {
		return RunReport{}, ErrAlreadyStarted
	}
	ranges := make([]variant.Range, 0, plan.ChunkCount())
	for chunk := plan.ChunkOffset(); chunk < plan.ChunkCount(); chunk++ {
		r, err := plan.ChunkRange(chunk)
		if err != nil {
			c.state.Store(int32(StateIdle))
			return RunReport{}, err
		}
		ranges = append(ranges, r)
	}
	if l == nil {
		l = NopListener{}
	}
	rep := RunReport{RunID: c.runID, Versions: append([]int(nil), versions...), Started: c.now()}
	c.log.Infof("run %s: %d versions x %d chunks", c.runID, len(versions), len(ranges))
	l.OnBegin()

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	waitCtx := context.WithoutCancel(ctx)
	for _, version := range versions {
		l.OnVersionBegin(version)
		handles := make([]*scheduler.Handle, 0, len(ranges))
		for i, r := range ranges {
			t := scheduler.Task{RunID: c.runID, Version: version, Chunk: plan.ChunkOffset() + i, Range: r, Index: c.index}
			handles = append(handles, c.sched.Submit(ctx, t, l))
		}
		g.Go(func() error {
			for _, h := range handles {
				cr, _ := h.Wait(waitCtx)
				c.record(waitCtx, cr)
				mu.Lock()
				rep.Chunks = append(rep.Chunks, cr)
				mu.Unlock()
			}
			l.OnVersionEnd(version)
			return nil
		})
	}

	c.state.Store(int32(StateAwaitingAll))
	_ = g.Wait()
	c.state.Store(int32(StateDone))

	sort.Slice(rep.Chunks, func(i, j int) bool {
		a, b := rep.Chunks[i].Task, rep.Chunks[j].Task
		if a.Version != b.Version {
			return a.Version < b.Version
		}
		return a.Chunk < b.Chunk
	})
	rep.Duration = c.now().Sub(rep.Started)
	failed := len(rep.Failed())
	c.publisher.Publish(events.RunFinished{
		RunID:    c.runID,
		Versions: len(versions),
		Chunks:   len(rep.Chunks),
		Failed:   failed,
		Duration: rep.Duration,
		Time:     c.now(),
	})
	if failed > 0 {
		c.log.Warnf("run %s finished in %s: %d/%d chunks failed", c.runID, rep.Duration, failed, len(rep.Chunks))
	} else {
		c.log.Infof("run %s finished in %s: %d chunks", c.runID, rep.Duration, len(rep.Chunks))
	}
	l.OnEnd()
	return rep, ctx.Err()
}

func (c *Coordinator) record(ctx context.Context, r scheduler.Report) {
	rec := runlog.Record{
		RunID:      c.runID,
		Version:    r.Task.Version,
		Chunk:      r.Task.Chunk,
		First:      r.Task.Range.First,
		Last:       r.Task.Range.Last,
		Outcome:    r.Outcome.String(),
		Decoded:    r.Stats.Decoded,
		Missing:    r.Stats.Missing,
		Invalid:    r.Stats.Invalid,
		Values:     r.Stats.Values,
		Series:     r.Series,
		Artifacts:  r.Artifacts,
		Started:    r.Started,
		DurationMS: r.Duration.Milliseconds(),
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
	}
	if err := c.store.Append(ctx, rec); err != nil {
		c.log.Errorf("cannot append run log record for %s: %v", r.Task, err)
	}
}
