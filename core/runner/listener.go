package runner

import "github.com/kilianp07/gridsim/core/timeseries"

// Listener receives the lifecycle of a run. OnChunkResult may be called
// concurrently from several tasks; the other callbacks bracket them:
// OnBegin first, OnVersionBegin before any chunk of that version is
// submitted, OnVersionEnd once every chunk of the version ended, OnEnd last.
type Listener interface {
	OnBegin()
	OnVersionBegin(version int)
	OnChunkResult(version, chunk int, series []timeseries.Series)
	OnVersionEnd(version int)
	OnEnd()
}

// NopListener ignores every callback.
type NopListener struct{}

func (NopListener) OnBegin()                                    {}
func (NopListener) OnVersionBegin(int)                          {}
func (NopListener) OnChunkResult(int, int, []timeseries.Series) {}
func (NopListener) OnVersionEnd(int)                            {}
func (NopListener) OnEnd()                                      {}

// MultiListener forwards every callback to each listener in order.
type MultiListener []Listener

func (m MultiListener) OnBegin() {
	for _, l := range m {
		l.OnBegin()
	}
}

func (m MultiListener) OnVersionBegin(version int) {
	for _, l := range m {
		l.OnVersionBegin(version)
	}
}

func (m MultiListener) OnChunkResult(version, chunk int, series []timeseries.Series) {
	for _, l := range m {
		l.OnChunkResult(version, chunk, series)
	}
}

func (m MultiListener) OnVersionEnd(version int) {
	for _, l := range m {
		l.OnVersionEnd(version)
	}
}

func (m MultiListener) OnEnd() {
	for _, l := range m {
		l.OnEnd()
	}
}
