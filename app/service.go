package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/gridsim/api/runs"
	"github.com/kilianp07/gridsim/config"
	"github.com/kilianp07/gridsim/core/events"
	coremetrics "github.com/kilianp07/gridsim/core/metrics"
	coremon "github.com/kilianp07/gridsim/core/monitoring"
	"github.com/kilianp07/gridsim/core/runlog"
	"github.com/kilianp07/gridsim/core/runner"
	"github.com/kilianp07/gridsim/core/scheduler"
	"github.com/kilianp07/gridsim/core/variant"
	"github.com/kilianp07/gridsim/infra/logger"
	"github.com/kilianp07/gridsim/infra/metrics"
	"github.com/kilianp07/gridsim/infra/monitoring"
	"github.com/kilianp07/gridsim/infra/mqtt"
	"github.com/kilianp07/gridsim/infra/solver"
	"github.com/kilianp07/gridsim/infra/store"
	"github.com/kilianp07/gridsim/internal/eventbus"
)

// Service wires the configuration into a coordinator and its listeners.
type Service struct {
	cfg       *config.Config
	log       logger.Logger
	plan      *variant.Plan
	bus       *eventbus.Bus[events.Event]
	sink      coremetrics.MetricsSink
	collected <-chan struct{}
	runlog    runlog.Store
	series    *store.SeriesStore
	mqtt      *mqtt.PahoClient
	sched     *scheduler.Scheduler
	coord     *runner.Coordinator
	listeners runner.MultiListener
	stop      context.CancelFunc
}

// Option customizes a Service.
type Option func(*options)

type options struct {
	exec      scheduler.Executor
	listeners []runner.Listener
	runID     string
}

// WithExecutor replaces the solver process executor.
func WithExecutor(e scheduler.Executor) Option { return func(o *options) { o.exec = e } }

// WithListener adds a listener after the configured ones.
func WithListener(l runner.Listener) Option {
	return func(o *options) { o.listeners = append(o.listeners, l) }
}

// WithRunID fixes the run identifier.
func WithRunID(id string) Option { return func(o *options) { o.runID = id } }

// New creates a Service from the configuration. Configuration errors,
// including an invalid chunk plan, are returned here.
func New(cfg *config.Config, opts ...Option) (svc *Service, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	log := logger.New("service")

	plan, err := cfg.Run.Plan()
	if err != nil {
		return nil, fmt.Errorf("chunk plan: %w", err)
	}
	index, err := cfg.Run.Index()
	if err != nil {
		return nil, fmt.Errorf("time index: %w", err)
	}

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, err
	}
	coremon.Init(mon)

	ctx, stop := context.WithCancel(context.Background())
	s := &Service{cfg: cfg, log: log, plan: plan, stop: stop}
	defer func() {
		if err != nil {
			if cerr := s.Close(); cerr != nil {
				log.Errorf("close after init failure: %v", cerr)
			}
		}
	}()

	s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	s.bus = eventbus.New[events.Event](eventbus.WithBuffer(256))
	s.collected = metrics.StartEventCollector(ctx, s.bus, s.sink)

	s.runlog, err = runlog.Open(cfg.RunLog)
	if err != nil {
		return nil, fmt.Errorf("run log: %w", err)
	}
	if port := cfg.Metrics.PrometheusPort; port != "" {
		addr := port
		if !strings.Contains(addr, ":") {
			addr = ":" + addr
		}
		route := metrics.Route{Pattern: "/api/runs/records", Handler: runs.NewRecordHandler(s.runlog, cfg.API.Token)}
		go func() {
			if err := metrics.StartPromServer(ctx, addr, route); err != nil {
				log.Errorf("prom server: %v", err)
			}
		}()
	}

	exec := o.exec
	if exec == nil {
		exec, err = solver.NewProcessExecutor(cfg.Solver, logger.New("solver"))
		if err != nil {
			return nil, fmt.Errorf("solver: %w", err)
		}
	}
	s.sched = scheduler.New(exec,
		scheduler.WithInputGenerator(solver.CopyInputGenerator{Dir: cfg.Solver.InputDir}),
		scheduler.WithWorkspace(scheduler.TempWorkspace{Root: cfg.Solver.WorkDir, Keep: cfg.Solver.KeepWorkDirs}),
		scheduler.WithObserver(logger.NewChunkLogger(logger.New("chunk"))),
		scheduler.WithPublisher(s.bus),
		scheduler.WithArtifacts(cfg.Artifacts),
		scheduler.WithLogger(logger.New("scheduler")),
	)
	coordOpts := []runner.Option{
		runner.WithLogger(logger.New("coordinator")),
		runner.WithPublisher(s.bus),
		runner.WithRunLog(s.runlog),
		runner.WithIndex(index),
	}
	if o.runID != "" {
		coordOpts = append(coordOpts, runner.WithRunID(o.runID))
	}
	s.coord = runner.New(s.sched, coordOpts...)

	if cfg.Store.Enabled() {
		s.series, err = store.NewSeriesStore(cfg.Store.SQLitePath, s.coord.RunID(), logger.New("series-store"))
		if err != nil {
			return nil, fmt.Errorf("series store: %w", err)
		}
		s.listeners = append(s.listeners, s.series)
	}
	if cfg.MQTT.Enabled() {
		s.mqtt, err = mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		s.listeners = append(s.listeners,
			mqtt.NewProgressPublisher(s.mqtt, s.coord.RunID(), cfg.MQTT.TopicPrefix, logger.New("mqtt-progress")))
	}
	s.listeners = append(s.listeners, o.listeners...)
	return s, nil
}

// RunID identifies the run of this service.
func (s *Service) RunID() string { return s.coord.RunID() }

// Plan returns the chunk plan built from the configuration.
func (s *Service) Plan() *variant.Plan { return s.plan }

// Run executes the batch and blocks until every chunk ended.
func (s *Service) Run(ctx context.Context) (runner.RunReport, error) {
	rep, err := s.coord.Run(ctx, s.cfg.Run.Versions, s.plan, s.listeners)
	s.sched.Wait()
	failed := len(rep.Failed())
	s.log.Infof("run %s finished in %s: %d chunks, %d failed", rep.RunID, rep.Duration, len(rep.Chunks), failed)
	return rep, err
}

// Close drains the event collector and releases every resource.
func (s *Service) Close() error {
	var errs []error
	if s.bus != nil {
		s.bus.Close()
		if dropped := s.bus.Dropped(); dropped > 0 {
			s.log.Warnf("%d events dropped by slow subscribers", dropped)
		}
	}
	if s.collected != nil {
		<-s.collected
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	if s.runlog != nil {
		errs = append(errs, s.runlog.Close())
	}
	if s.series != nil {
		errs = append(errs, s.series.Close())
	}
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	if s.stop != nil {
		s.stop()
	}
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}
