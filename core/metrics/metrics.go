package metrics

import "time"

// ChunkExecution describes one finished chunk task.
type ChunkExecution struct {
	RunID    string
	Version  int
	Chunk    int
	First    int
	Last     int
	Outcome  string
	Decoded  int
	Missing  int
	Invalid  int
	Values   int
	Duration time.Duration
	Time     time.Time
}

// Variants returns the number of variants the chunk covered.
func (c ChunkExecution) Variants() int {
	if c.First < 0 {
		return 0
	}
	return c.Last - c.First + 1
}

// MetricsSink records chunk executions for observability purposes.
type MetricsSink interface {
	RecordChunk(ev ChunkExecution) error
}

// RunSummary is emitted once per run after every chunk joined.
type RunSummary struct {
	RunID    string
	Versions int
	Chunks   int
	Failed   int
	Duration time.Duration
	Time     time.Time
}

// RunRecorder is implemented by sinks able to record run summaries.
type RunRecorder interface {
	RecordRun(ev RunSummary) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordChunk(ChunkExecution) error { return nil }
func (NopSink) RecordRun(RunSummary) error       { return nil }
