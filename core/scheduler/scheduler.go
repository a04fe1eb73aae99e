package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/kilianp07/gridsim/core/events"
	"github.com/kilianp07/gridsim/core/logger"
	"github.com/kilianp07/gridsim/core/monitoring"
	"github.com/kilianp07/gridsim/core/result"
)

// Scheduler submits chunk tasks. Each submitted task runs in its own
// goroutine; the Executor is responsible for bounding solver concurrency.
type Scheduler struct {
	exec      Executor
	gen       InputGenerator
	ws        Workspace
	decoder   *result.Decoder
	observer  ChunkObserver
	publisher events.Publisher
	artifacts artifactCollector
	log       logger.Logger
	now       func() time.Time
	wg        sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInputGenerator sets the generator preparing each scratch directory.
func WithInputGenerator(g InputGenerator) Option { return func(s *Scheduler) { s.gen = g } }

// WithWorkspace replaces the default TempWorkspace.
func WithWorkspace(w Workspace) Option { return func(s *Scheduler) { s.ws = w } }

// WithObserver sets the chunk lifecycle observer.
func WithObserver(o ChunkObserver) Option { return func(s *Scheduler) { s.observer = o } }

// WithPublisher sets where chunk events are published.
func WithPublisher(p events.Publisher) Option { return func(s *Scheduler) { s.publisher = p } }

// WithArtifacts enables artifact retrieval.
func WithArtifacts(cfg ArtifactConfig) Option {
	return func(s *Scheduler) { s.artifacts.cfg = cfg }
}

// WithLogger sets the scheduler logger; the decoder logs through it too.
func WithLogger(l logger.Logger) Option { return func(s *Scheduler) { s.log = l } }

// New returns a Scheduler running tasks through exec.
func New(exec Executor, opts ...Option) *Scheduler {
	s := &Scheduler{
		exec:      exec,
		ws:        TempWorkspace{},
		observer:  NopObserver{},
		publisher: events.NopPublisher{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.OrNop(s.log)
	s.decoder = result.NewDecoder(s.log)
	s.artifacts.log = s.log
	return s
}

// Submit starts t and returns immediately. Series of a successful task are
// delivered to sink before the handle completes.
func (s *Scheduler) Submit(ctx context.Context, t Task, sink ResultSink) *Handle {
	h := newHandle(t)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		h.finish(s.run(ctx, t, sink))
	}()
	return h
}

// Wait blocks until every submitted task has finished.
func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) run(ctx context.Context, t Task, sink ResultSink) (rep Report) {
	rep = Report{Task: t, Started: s.now()}
	chunksInFlight.Inc()
	s.publisher.Publish(events.ChunkStarted{RunID: t.RunID, Version: t.Version, Chunk: t.Chunk, Range: t.Range, Time: rep.Started})
	defer func() {
		if err := monitoring.Recovered(recover(), t.tags()); err != nil {
			rep.Outcome, rep.Err = OutcomeFailed, err
		}
		rep.Duration = s.now().Sub(rep.Started)
		chunksInFlight.Dec()
		s.finish(rep)
	}()

	dir, release, err := s.ws.Create(t)
	if err != nil {
		return s.fail(rep, OutcomeFailed, err)
	}
	defer func() {
		if err := release(); err != nil {
			s.log.Warnf("cannot remove scratch directory %s: %v", dir, err)
		}
	}()

	if s.gen != nil {
		if err := s.gen.Generate(ctx, dir, t); err != nil {
			return s.fail(rep, OutcomeFailed, fmt.Errorf("generate inputs: %w", err))
		}
	}
	if err := ctx.Err(); err != nil {
		return s.fail(rep, OutcomeCancelled, err)
	}

	s.observer.BeforeExecution(t)
	execRep, err := s.exec.Execute(ctx, dir, t)
	s.observer.AfterExecution(t, execRep)
	if err != nil {
		if ctx.Err() != nil {
			return s.fail(rep, OutcomeCancelled, errors.Join(ctx.Err(), err))
		}
		return s.fail(rep, OutcomeFailed, fmt.Errorf("execute: %w", err))
	}
	if execRep.Failed() {
		rep.Artifacts, err = s.artifacts.collect(dir, t)
		if err != nil {
			s.log.Warnf("%s: %v", t, err)
		}
		return s.fail(rep, OutcomeExecutionFailed, &ExecutionError{ExitCode: execRep.ExitCode, Errors: execRep.Errors})
	}

	s.observer.BeforeDecoding(t)
	rs := result.NewResultSet(t.Range.First, t.Range.Len())
	rep.Stats = s.decoder.ReadChunk(dir, t.Range, rs)
	initial, err := result.LoadInitialSeries(filepath.Join(dir, result.OptimizedFileName))
	if err != nil {
		s.log.Warnf("ignoring %s for %s: %v", result.OptimizedFileName, t, err)
	}
	rs.CompleteOptimized(initial)
	s.observer.AfterDecoding(t, rep.Stats)
	series := rs.Finalize(t.Index)
	rep.Series = len(series)

	rep.Artifacts, err = s.artifacts.collect(dir, t)
	if err != nil {
		return s.fail(rep, OutcomeFailed, err)
	}
	if err := ctx.Err(); err != nil {
		return s.fail(rep, OutcomeCancelled, err)
	}

	if sink != nil {
		sink.OnChunkResult(t.Version, t.Chunk, series)
	}
	rep.Outcome = OutcomeSucceeded
	return rep
}

func (s *Scheduler) fail(rep Report, o Outcome, err error) Report {
	rep.Outcome = o
	rep.Err = fmt.Errorf("%s: %w", rep.Task, err)
	return rep
}

func (s *Scheduler) finish(rep Report) {
	t := rep.Task
	outcome := rep.Outcome.String()
	chunksTotal.WithLabelValues(outcome).Inc()
	chunkDuration.WithLabelValues(outcome).Observe(rep.Duration.Seconds())
	variantsDecoded.WithLabelValues(result.VariantDecoded.String()).Add(float64(rep.Stats.Decoded))
	variantsDecoded.WithLabelValues(result.VariantMissing.String()).Add(float64(rep.Stats.Missing))
	variantsDecoded.WithLabelValues(result.VariantInvalid.String()).Add(float64(rep.Stats.Invalid))

	switch rep.Outcome {
	case OutcomeSucceeded:
		s.log.Infof("%s done in %s: %d series, %d decoded, %d missing, %d invalid",
			t, rep.Duration, rep.Series, rep.Stats.Decoded, rep.Stats.Missing, rep.Stats.Invalid)
	case OutcomeCancelled:
		s.log.Warnf("%s cancelled: %v", t, rep.Err)
	default:
		s.log.Errorf("%s %s: %v", t, outcome, rep.Err)
		tags := t.tags()
		tags["outcome"] = outcome
		monitoring.CaptureException(rep.Err, tags)
	}

	s.publisher.Publish(events.ChunkFinished{
		RunID:    t.RunID,
		Version:  t.Version,
		Chunk:    t.Chunk,
		Range:    t.Range,
		Outcome:  outcome,
		Stats:    rep.Stats,
		Duration: rep.Duration,
		Err:      rep.Err,
		Time:     s.now(),
	})
}
