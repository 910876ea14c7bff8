package wizard

// Step is the wizard's position in its fixed ordered sequence. The integer
// value doubles as the progress index.
type Step int

const (
	StepChoose Step = iota
	StepConnect
	StepTune
	StepClarify
	StepBuild
	StepCreate
)

var stepNames = map[Step]string{
	StepChoose:  "choose",
	StepConnect: "connect",
	StepTune:    "tune",
	StepClarify: "clarify",
	StepBuild:   "build",
	StepCreate:  "create",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s Step) Valid() bool {
	_, ok := stepNames[s]
	return ok
}

// Index reports the step's position for progress and completed-step
// comparisons.
func (s Step) Index() int { return int(s) }
