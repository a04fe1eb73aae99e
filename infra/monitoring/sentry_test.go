package monitoring

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridsim/config"
	coremon "github.com/kilianp07/gridsim/core/monitoring"
)

type captured struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (c *captured) beforeSend(e *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
	return nil
}

func newTestMonitor(t *testing.T) (*sentryMonitor, *captured) {
	t.Helper()
	c := &captured{}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:        "https://public@127.0.0.1/1",
		BeforeSend: c.beforeSend,
	})
	require.NoError(t, err)
	return &sentryMonitor{hub: sentry.NewHub(client, sentry.NewScope())}, c
}

func TestEmptyDSNIsNop(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	require.NoError(t, err)
	assert.IsType(t, coremon.NopMonitor{}, m)
}

func TestCaptureExceptionTags(t *testing.T) {
	m, c := newTestMonitor(t)
	m.CaptureException(errors.New("chunk failed"), map[string]string{"version": "1", "chunk": "3"})
	m.CaptureException(nil, nil)
	m.Flush(time.Millisecond)

	require.Len(t, c.events, 1)
	assert.Equal(t, "1", c.events[0].Tags["version"])
	assert.Equal(t, "3", c.events[0].Tags["chunk"])
}

func TestCapturePanicDoesNotRepanic(t *testing.T) {
	m, c := newTestMonitor(t)
	assert.NotPanics(t, func() {
		m.CapturePanic("boom", nil)
	})
	m.CapturePanic(nil, nil)
	assert.Len(t, c.events, 1)
}
