package logger

import (
	"sync"
	"time"

	"github.com/kilianp07/gridsim/core/result"
	"github.com/kilianp07/gridsim/core/scheduler"
)

type chunkKey struct{ version, chunk int }

// ChunkLogger is a scheduler.ChunkObserver logging the duration of the
// execution and decoding steps of every chunk.
type ChunkLogger struct {
	log   Logger
	mu    sync.Mutex
	start map[chunkKey]time.Time
	now   func() time.Time
}

func NewChunkLogger(log Logger) *ChunkLogger {
	if log == nil {
		log = NopLogger{}
	}
	return &ChunkLogger{log: log, start: make(map[chunkKey]time.Time), now: time.Now}
}

func (c *ChunkLogger) mark(t scheduler.Task) {
	c.mu.Lock()
	c.start[chunkKey{t.Version, t.Chunk}] = c.now()
	c.mu.Unlock()
}

func (c *ChunkLogger) elapsed(t scheduler.Task) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := chunkKey{t.Version, t.Chunk}
	start, ok := c.start[k]
	delete(c.start, k)
	if !ok {
		return 0
	}
	return c.now().Sub(start)
}

func (c *ChunkLogger) BeforeExecution(t scheduler.Task) {
	c.mark(t)
	c.log.Debugw("chunk execution started", fields(t))
}

func (c *ChunkLogger) AfterExecution(t scheduler.Task, rep scheduler.ExecutionReport) {
	f := fields(t)
	f["elapsed_ms"] = c.elapsed(t).Milliseconds()
	f["exit_code"] = rep.ExitCode
	f["errors"] = len(rep.Errors)
	c.log.Debugw("chunk execution ended", f)
}

func (c *ChunkLogger) BeforeDecoding(t scheduler.Task) {
	c.mark(t)
	c.log.Debugw("chunk decoding started", fields(t))
}

func (c *ChunkLogger) AfterDecoding(t scheduler.Task, stats result.ChunkStats) {
	f := fields(t)
	f["elapsed_ms"] = c.elapsed(t).Milliseconds()
	f["decoded"] = stats.Decoded
	f["missing"] = stats.Missing
	f["invalid"] = stats.Invalid
	f["values"] = stats.Values
	c.log.Debugw("chunk decoding ended", f)
}

func fields(t scheduler.Task) map[string]any {
	return map[string]any{
		"run_id":  t.RunID,
		"version": t.Version,
		"chunk":   t.Chunk,
		"first":   t.Range.First,
		"last":    t.Range.Last,
	}
}
