package wizard

import "github.com/personakit/adoptctl/pkg/design"

// Event is a job observation entering the wizard, from either the poller or
// the live stream. Every event carries the job id it concerns; Store.Apply
// drops events whose id does not match the tracked job.
type Event interface {
	isEvent()
	jobID() string
}

// JobOutput is a single pushed output line, appended optimistically.
type JobOutput struct {
	JobID string
	Line  string
}

// JobLines is the full accumulated output from a poll snapshot. It replaces
// the local buffer; the poll source is authoritative.
type JobLines struct {
	JobID string
	Lines []string
}

// JobPhase reports a lifecycle phase observation.
type JobPhase struct {
	JobID string
	Phase Phase
	Err   string
}

// JobDraft delivers the generated persona draft on completion.
type JobDraft struct {
	JobID string
	Draft *design.Draft
}

// JobCompletedEmpty reports a completed job that produced no usable draft.
type JobCompletedEmpty struct {
	JobID string
}

// JobFailed reports a terminal failure with its message.
type JobFailed struct {
	JobID string
	Err   string
}

// JobOrphaned reports that the backend can no longer resolve the job id.
type JobOrphaned struct {
	JobID string
}

// JobQuestions delivers clarification questions raised mid-generation.
type JobQuestions struct {
	JobID     string
	Questions []design.Question
}

func (e JobOutput) isEvent()         {}
func (e JobLines) isEvent()          {}
func (e JobPhase) isEvent()          {}
func (e JobDraft) isEvent()          {}
func (e JobCompletedEmpty) isEvent() {}
func (e JobFailed) isEvent()         {}
func (e JobOrphaned) isEvent()       {}
func (e JobQuestions) isEvent()      {}

func (e JobOutput) jobID() string         { return e.JobID }
func (e JobLines) jobID() string          { return e.JobID }
func (e JobPhase) jobID() string          { return e.JobID }
func (e JobDraft) jobID() string          { return e.JobID }
func (e JobCompletedEmpty) jobID() string { return e.JobID }
func (e JobFailed) jobID() string         { return e.JobID }
func (e JobOrphaned) jobID() string       { return e.JobID }
func (e JobQuestions) jobID() string      { return e.JobID }

// Effect is a side effect the store asks its owner to run after an event
// lands. The store itself never touches persistence or the backend.
type Effect interface{ isEffect() }

// ClearPendingEffect removes the persisted adoption record.
type ClearPendingEffect struct{}

// ReleaseJobEffect drops the backend snapshot for a finished job and resets
// the live stream correlation.
type ReleaseJobEffect struct {
	JobID string
}

func (ClearPendingEffect) isEffect() {}
func (ReleaseJobEffect) isEffect()   {}

// Sink consumes events and runs the effects they produce. The wizard is the
// production sink; tests substitute recorders.
type Sink interface {
	Handle(Event)
}
