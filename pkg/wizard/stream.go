package wizard

import (
	"encoding/json"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"

	"github.com/personakit/adoptctl/pkg/bus"
	"github.com/personakit/adoptctl/pkg/engine"
)

// Correlator forwards pushed job events to a sink, but only while they carry
// the tracked job id. Push delivery is an optimization; the poll loop remains
// the source of truth, so dropped or early pushes are corrected within one
// poll interval.
type Correlator struct {
	mu    sync.Mutex
	jobID string
	sink  Sink
}

func NewCorrelator(sink Sink) *Correlator {
	return &Correlator{sink: sink}
}

// Track sets the job id pushes must carry to pass the gate. Call it before
// launching so no early event slips through unkeyed.
func (c *Correlator) Track(jobID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobID = jobID
}

// Reset drops the correlation; subsequent pushes are ignored until the next
// Track.
func (c *Correlator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobID = ""
}

func (c *Correlator) Tracked() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jobID
}

func (c *Correlator) matches(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jobID != "" && c.jobID == id
}

// Register attaches the correlator's handlers to the job output and status
// topics. Handlers stay registered for the bus lifetime; the id gate decides
// what gets through.
func (c *Correlator) Register(b *bus.Bus) {
	b.AddHandler("adopt-output-correlator", bus.TopicJobOutput, c.handleOutput)
	b.AddHandler("adopt-status-correlator", bus.TopicJobStatus, c.handleStatus)
}

func (c *Correlator) handleOutput(msg *message.Message) error {
	defer msg.Ack()

	var env bus.Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return errors.Wrap(err, "unmarshal output envelope")
	}
	if env.Type != bus.TypeJobOutput {
		return nil
	}
	var ev bus.JobOutputEvent
	if err := json.Unmarshal(env.Payload, &ev); err != nil {
		return errors.Wrap(err, "unmarshal output event")
	}
	if !c.matches(ev.AdoptID) {
		return nil
	}
	c.sink.Handle(JobOutput{JobID: ev.AdoptID, Line: ev.Line})
	return nil
}

func (c *Correlator) handleStatus(msg *message.Message) error {
	defer msg.Ack()

	var env bus.Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return errors.Wrap(err, "unmarshal status envelope")
	}
	if env.Type != bus.TypeJobStatus {
		return nil
	}
	var ev bus.JobStatusEvent
	if err := json.Unmarshal(env.Payload, &ev); err != nil {
		return errors.Wrap(err, "unmarshal status event")
	}
	if !c.matches(ev.AdoptID) {
		return nil
	}

	switch engine.Status(ev.Status) {
	case engine.StatusRunning:
		c.sink.Handle(JobPhase{JobID: ev.AdoptID, Phase: PhaseRunning})
	case engine.StatusCompleted:
		// Phase only; the draft or its absence comes from the next poll.
		c.sink.Handle(JobPhase{JobID: ev.AdoptID, Phase: PhaseCompleted})
	case engine.StatusFailed:
		c.sink.Handle(JobFailed{JobID: ev.AdoptID, Err: ev.Err})
	case engine.StatusAwaitingAnswers:
		// Questions arrive with the snapshot, not the push.
	}
	return nil
}
