package events

import (
	"time"

	"github.com/kilianp07/gridsim/core/result"
	"github.com/kilianp07/gridsim/core/variant"
)

// Event is implemented by every event type of this package.
type Event interface {
	Kind() string
}

// Publisher accepts events. *eventbus.Bus[Event] satisfies it.
type Publisher interface {
	Publish(Event)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}

// ChunkStarted is published once a chunk task begins.
type ChunkStarted struct {
	RunID   string
	Version int
	Chunk   int
	Range   variant.Range
	Time    time.Time
}

func (ChunkStarted) Kind() string { return "chunk_started" }

// ChunkFinished is published when a chunk task ends, whatever its outcome.
type ChunkFinished struct {
	RunID    string
	Version  int
	Chunk    int
	Range    variant.Range
	Outcome  string
	Stats    result.ChunkStats
	Duration time.Duration
	Err      error
	Time     time.Time
}

func (ChunkFinished) Kind() string { return "chunk_finished" }

// RunFinished is published after the coordinator joined every chunk.
type RunFinished struct {
	RunID    string
	Versions int
	Chunks   int
	Failed   int
	Duration time.Duration
	Time     time.Time
}

func (RunFinished) Kind() string { return "run_finished" }
