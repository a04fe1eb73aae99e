package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridsim/core/result"
	"github.com/kilianp07/gridsim/core/scheduler"
	"github.com/kilianp07/gridsim/core/variant"
)

func TestZerologLoggerMethods(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("test")
	require.NotNil(t, l)
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestComponentFieldAndLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	var buf bytes.Buffer
	l := NewWithWriter("decoder", &buf)
	l.Infof("hidden")
	l.Warnf("variant %d missing", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "decoder", entry["component"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "variant 3 missing", entry["message"])
}

func TestChunkLoggerFields(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	var buf bytes.Buffer
	cl := NewChunkLogger(NewWithWriter("scheduler", &buf).With(map[string]any{"node": "a"}))
	task := scheduler.Task{RunID: "r", Version: 2, Chunk: 5, Range: variant.Range{First: 10, Last: 14}}
	cl.BeforeExecution(task)
	cl.AfterExecution(task, scheduler.ExecutionReport{ExitCode: 0})
	cl.BeforeDecoding(task)
	cl.AfterDecoding(task, result.ChunkStats{Decoded: 4, Missing: 1})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	var last map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[3]), &last))
	assert.Equal(t, "chunk decoding ended", last["message"])
	assert.Equal(t, float64(1), last["missing"])
	assert.Equal(t, float64(5), last["chunk"])
	assert.Equal(t, "a", last["node"])
}
