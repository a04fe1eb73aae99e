package monitoring

import (
	"fmt"
	"sync"
	"time"
)

// Monitor reports failures to an error tracking backend.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	CapturePanic(value any, tags map[string]string)
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) CapturePanic(any, map[string]string)       {}
func (NopMonitor) Flush(time.Duration)                       {}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init sets the global monitor implementation. nil restores the no-op monitor.
func Init(m Monitor) {
	mu.Lock()
	defer mu.Unlock()
	if m == nil {
		m = NopMonitor{}
	}
	current = m
}

func get() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	get().CaptureException(err, tags)
}

// PanicError wraps a value recovered from a panic.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Recovered reports a recovered panic value and returns it as an error. It
// returns nil when value is nil, so it can be called with recover()
// directly from a deferred function:
//
//	defer func() {
//		if err := monitoring.Recovered(recover(), tags); err != nil { ... }
//	}()
func Recovered(value any, tags map[string]string) error {
	if value == nil {
		return nil
	}
	get().CapturePanic(value, tags)
	return &PanicError{Value: value}
}

// Flush flushes buffered events.
func Flush(d time.Duration) { get().Flush(d) }
