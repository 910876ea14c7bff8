package wizard

// Phase is the lifecycle of the background adoption job as the wizard sees
// it. Transitions are monotonic: once a terminal phase is reached the job
// never reports running again.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseCompleted
	PhaseFailed
)

var phaseNames = map[Phase]string{
	PhaseIdle:      "idle",
	PhaseRunning:   "running",
	PhaseCompleted: "completed",
	PhaseFailed:    "failed",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

func (p Phase) rank() int {
	switch p {
	case PhaseIdle:
		return 0
	case PhaseRunning:
		return 1
	default:
		return 2
	}
}

// CanTransitionTo reports whether moving from p to next preserves the
// monotonic lifecycle. Re-applying the current phase is allowed so that
// repeated poll snapshots stay idempotent; moving between the two terminal
// phases is not.
func (p Phase) CanTransitionTo(next Phase) bool {
	if p == next {
		return true
	}
	return next.rank() > p.rank()
}
