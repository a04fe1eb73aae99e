package metrics

import (
	"context"

	"github.com/kilianp07/gridsim/core/events"
	coremetrics "github.com/kilianp07/gridsim/core/metrics"
	"github.com/kilianp07/gridsim/infra/logger"
	"github.com/kilianp07/gridsim/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records chunk and run
// events in sink. It returns a channel closed once the collector stopped,
// which happens when ctx is canceled or the bus is closed.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[events.Event], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := recordEvent(sink, ev); err != nil {
					log.Warnf("record %s: %v", ev.Kind(), err)
				}
			}
		}
	}()
	return done
}

func recordEvent(sink coremetrics.MetricsSink, ev events.Event) error {
	switch e := ev.(type) {
	case events.ChunkFinished:
		return sink.RecordChunk(coremetrics.ChunkExecution{
			RunID:    e.RunID,
			Version:  e.Version,
			Chunk:    e.Chunk,
			First:    e.Range.First,
			Last:     e.Range.Last,
			Outcome:  e.Outcome,
			Decoded:  e.Stats.Decoded,
			Missing:  e.Stats.Missing,
			Invalid:  e.Stats.Invalid,
			Values:   e.Stats.Values,
			Duration: e.Duration,
			Time:     e.Time,
		})
	case events.RunFinished:
		if r, ok := sink.(coremetrics.RunRecorder); ok {
			return r.RecordRun(coremetrics.RunSummary{
				RunID:    e.RunID,
				Versions: e.Versions,
				Chunks:   e.Chunks,
				Failed:   e.Failed,
				Duration: e.Duration,
				Time:     e.Time,
			})
		}
	}
	return nil
}
