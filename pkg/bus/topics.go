package bus

const (
	TopicJobOutput  = "adopt.job.output"
	TopicJobStatus  = "adopt.job.status"
	TopicUIMessages = "adopt.ui.msgs"
)

const (
	TypeJobOutput = "job.output"
	TypeJobStatus = "job.status"
)

const (
	UITypeWizardSnapshot = "ui.wizard.snapshot"
	UITypeOutputAppend   = "ui.output.append"
)

// JobOutputEvent is one surfaced generator line, pushed as the job runs.
// AdoptID is the correlation key the stream correlator gates on.
type JobOutputEvent struct {
	AdoptID string `json:"adopt_id"`
	Line    string `json:"line"`
}

// JobStatusEvent announces a job status change on the status channel.
type JobStatusEvent struct {
	AdoptID string `json:"adopt_id"`
	Status  string `json:"status"`
	Err     string `json:"error,omitempty"`
}
