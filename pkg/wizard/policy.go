package wizard

// Action is what advancing from a step means.
type Action int

const (
	ActionNone Action = iota
	ActionNavigate
	ActionStartJob
	ActionResumeJob
	ActionFinalize
)

func (a Action) String() string {
	switch a {
	case ActionNavigate:
		return "navigate"
	case ActionStartJob:
		return "start-job"
	case ActionResumeJob:
		return "resume-job"
	case ActionFinalize:
		return "finalize"
	default:
		return "none"
	}
}

// Decision is the outcome of evaluating the forward policy for a step.
type Decision struct {
	Action Action
	Target Step
}

// Decide maps the current step and state to the action that "next" performs.
// Advancing from the tuning step starts the generation job, or rewires to an
// existing one when a job id is already tracked. The clarification step has
// no generic forward action; answers go through SubmitAnswers.
func Decide(step Step, s State) Decision {
	switch step {
	case StepChoose:
		return Decision{Action: ActionNavigate, Target: StepConnect}
	case StepConnect:
		return Decision{Action: ActionNavigate, Target: StepTune}
	case StepTune:
		if s.Job.ID != "" {
			return Decision{Action: ActionResumeJob}
		}
		return Decision{Action: ActionStartJob}
	case StepBuild:
		if s.Draft.Draft != nil {
			return Decision{Action: ActionNavigate, Target: StepCreate}
		}
		return Decision{Action: ActionNone}
	case StepCreate:
		return Decision{Action: ActionFinalize}
	default:
		return Decision{Action: ActionNone}
	}
}

// DecideBack maps the current step to its backward target. The clarification
// step is skipped when no questions were ever raised. From the first step
// there is nowhere to go.
func DecideBack(step Step, s State) (Step, bool) {
	switch step {
	case StepConnect:
		return StepChoose, true
	case StepTune:
		return StepConnect, true
	case StepClarify:
		return StepTune, true
	case StepBuild:
		if s.Clarify.Asked() {
			return StepClarify, true
		}
		return StepTune, true
	case StepCreate:
		return StepBuild, true
	default:
		return step, false
	}
}
