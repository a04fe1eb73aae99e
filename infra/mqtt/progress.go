package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/gridsim/core/timeseries"
	"github.com/kilianp07/gridsim/infra/logger"
)

// Publisher sends a raw payload to a topic.
type Publisher interface {
	Publish(kind, topic string, payload []byte) error
}

// Progress is the JSON document published for every run callback.
type Progress struct {
	Event      string    `json:"event"`
	RunID      string    `json:"run_id"`
	Version    *int      `json:"version,omitempty"`
	Chunk      *int      `json:"chunk,omitempty"`
	Series     int       `json:"series,omitempty"`
	ChunksDone int       `json:"chunks_done"`
	Time       time.Time `json:"time"`
}

const (
	EventRunBegin     = "run_begin"
	EventVersionBegin = "version_begin"
	EventChunkResult  = "chunk_result"
	EventVersionEnd   = "version_end"
	EventRunEnd       = "run_end"
)

// ProgressPublisher reports run progress on MQTT topics below
// <prefix>/runs/<run id>. Publication failures are logged and never
// interrupt the run.
type ProgressPublisher struct {
	pub    Publisher
	runID  string
	prefix string
	log    logger.Logger
	now    func() time.Time

	mu        sync.Mutex
	done      int
	doneByVer map[int]int
}

// NewProgressPublisher creates a listener publishing through pub.
func NewProgressPublisher(pub Publisher, runID, prefix string, log logger.Logger) *ProgressPublisher {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &ProgressPublisher{
		pub:       pub,
		runID:     runID,
		prefix:    prefix,
		log:       log,
		now:       time.Now,
		doneByVer: make(map[int]int),
	}
}

func (p *ProgressPublisher) runTopic() string {
	return fmt.Sprintf("%s/runs/%s", p.prefix, p.runID)
}

func (p *ProgressPublisher) OnBegin() {
	p.send("run", p.runTopic(), Progress{Event: EventRunBegin})
}

func (p *ProgressPublisher) OnVersionBegin(version int) {
	p.send("version", fmt.Sprintf("%s/versions/%d", p.runTopic(), version),
		Progress{Event: EventVersionBegin, Version: &version})
}

func (p *ProgressPublisher) OnChunkResult(version, chunk int, series []timeseries.Series) {
	p.mu.Lock()
	p.done++
	p.doneByVer[version]++
	done := p.doneByVer[version]
	p.mu.Unlock()
	p.send("chunk", fmt.Sprintf("%s/chunks/%d/%d", p.runTopic(), version, chunk),
		Progress{Event: EventChunkResult, Version: &version, Chunk: &chunk, Series: len(series), ChunksDone: done})
}

func (p *ProgressPublisher) OnVersionEnd(version int) {
	p.mu.Lock()
	done := p.doneByVer[version]
	p.mu.Unlock()
	p.send("version", fmt.Sprintf("%s/versions/%d", p.runTopic(), version),
		Progress{Event: EventVersionEnd, Version: &version, ChunksDone: done})
}

func (p *ProgressPublisher) OnEnd() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	p.send("run", p.runTopic(), Progress{Event: EventRunEnd, ChunksDone: done})
}

func (p *ProgressPublisher) send(kind, topic string, msg Progress) {
	msg.RunID = p.runID
	msg.Time = p.now().UTC()
	payload, err := json.Marshal(msg)
	if err != nil {
		p.log.Errorf("encode progress %s: %v", msg.Event, err)
		return
	}
	if err := p.pub.Publish(kind, topic, payload); err != nil {
		p.log.Warnf("progress %s not published: %v", msg.Event, err)
	}
}
