package wizard

import (
	"encoding/json"
	"sync"

	"github.com/personakit/adoptctl/pkg/design"
	"github.com/personakit/adoptctl/pkg/engine"
)

// Messages surfaced to the user for outcomes the backend cannot phrase
// itself.
const (
	MsgCompletedNoDraft = "Generation completed without a usable persona draft. Adjust the template or try again."
	MsgSessionLost      = "The adoption job can no longer be found. The backend may have restarted; please start the adoption again."
	MsgNoDesignData     = "No design data available to start the adoption."
)

// Store owns the wizard state. All mutation goes through its methods; reads
// get a deep copy so callers never alias live state.
type Store struct {
	mu sync.Mutex
	s  State
}

// NewStore builds the initial state for a template context. Every suggestion
// starts selected; the user trims from there.
func NewStore(tpl TemplateContext) *Store {
	st := &Store{
		s: State{
			Step:           StepChoose,
			Template:       tpl,
			Variables:      map[string]string{},
			TriggerConfigs: map[int]map[string]any{},
			Clarify:        ClarifyState{Answers: map[string]string{}},
		},
	}
	st.s.Selection = design.SelectAll(tpl.Result)
	return st
}

// Get returns a snapshot of the current state.
func (st *Store) Get() State {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s.clone()
}

func (st *Store) update(fn func(*State)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(&st.s)
}

// SetStep moves the wizard to a step. Invalid steps are ignored.
func (st *Store) SetStep(step Step) {
	if !step.Valid() {
		return
	}
	st.update(func(s *State) { s.Step = step })
}

func (st *Store) ToggleTool(i int) {
	st.update(func(s *State) {
		if s.Template.Result == nil || i < 0 || i >= len(s.Template.Result.SuggestedTools) {
			return
		}
		s.Selection.ToggleTool(i)
	})
}

func (st *Store) ToggleTrigger(i int) {
	st.update(func(s *State) {
		if s.Template.Result == nil || i < 0 || i >= len(s.Template.Result.SuggestedTriggers) {
			return
		}
		s.Selection.ToggleTrigger(i)
	})
}

func (st *Store) ToggleConnector(i int) {
	st.update(func(s *State) {
		if s.Template.Result == nil || i < 0 || i >= len(s.Template.Result.SuggestedConnectors) {
			return
		}
		s.Selection.ToggleConnector(i)
	})
}

func (st *Store) ToggleChannel(i int) {
	st.update(func(s *State) {
		if s.Template.Result == nil || i < 0 || i >= len(s.Template.Result.SuggestedNotificationChannels) {
			return
		}
		s.Selection.ToggleChannel(i)
	})
}

func (st *Store) ToggleSubscription(i int) {
	st.update(func(s *State) {
		if s.Template.Result == nil || i < 0 || i >= len(s.Template.Result.SuggestedEventSubscriptions) {
			return
		}
		s.Selection.ToggleSubscription(i)
	})
}

func (st *Store) ToggleUseCase(id string) {
	st.update(func(s *State) { s.Selection.ToggleUseCase(id) })
}

func (st *Store) SetVariable(name, value string) {
	st.update(func(s *State) {
		if s.Variables == nil {
			s.Variables = map[string]string{}
		}
		s.Variables[name] = value
	})
}

// SetTriggerConfig overrides one config key of a suggested trigger, addressed
// by its index in the unfiltered suggestion list.
func (st *Store) SetTriggerConfig(idx int, key string, value any) {
	st.update(func(s *State) {
		if s.Template.Result == nil || idx < 0 || idx >= len(s.Template.Result.SuggestedTriggers) {
			return
		}
		if s.TriggerConfigs == nil {
			s.TriggerConfigs = map[int]map[string]any{}
		}
		cfg := s.TriggerConfigs[idx]
		if cfg == nil {
			cfg = map[string]any{}
			s.TriggerConfigs[idx] = cfg
		}
		cfg[key] = value
	})
}

func (st *Store) SetAdjustmentNote(note string) {
	st.update(func(s *State) { s.AdjustmentNote = note })
}

func (st *Store) ConsumeAdjustmentNote() {
	st.update(func(s *State) { s.AdjustmentNote = "" })
}

func (st *Store) SetAnswer(questionID, value string) {
	st.update(func(s *State) {
		if s.Clarify.Answers == nil {
			s.Clarify.Answers = map[string]string{}
		}
		s.Clarify.Answers[questionID] = value
	})
}

// UpdateDraftText replaces the editable draft text. While the text does not
// parse, the last valid draft is retained and ParseErr is set.
func (st *Store) UpdateDraftText(text string) {
	st.update(func(s *State) {
		s.Draft.Text = text
		draft, err := design.ParseDraft(text)
		if err != nil {
			s.Draft.ParseErr = err.Error()
			return
		}
		s.Draft.Draft = draft
		s.Draft.ParseErr = ""
	})
}

func (st *Store) SetError(msg string) {
	st.update(func(s *State) { s.Err = msg })
}

func (st *Store) ClearError() {
	st.update(func(s *State) { s.Err = "" })
}

// JobStarted records a freshly launched job. The previous job's output and
// any finalize outcome are discarded.
func (st *Store) JobStarted(jobID string) {
	st.update(func(s *State) {
		s.Job = JobState{ID: jobID, Phase: PhaseRunning}
		s.Err = ""
		s.Finalize = FinalizeState{}
		s.Clarify.Generating = true
	})
}

// JobLaunchFailed rolls state back after a launch that never reached the
// backend. The job id is cleared so the user can retry.
func (st *Store) JobLaunchFailed(msg string) {
	st.update(func(s *State) {
		s.Job.ID = ""
		s.Job.Phase = PhaseFailed
		s.Job.Err = msg
		s.Err = msg
		s.Clarify.Generating = false
	})
}

// RestoreJob reattaches to a job recorded by a previous session. The phase is
// assumed running until the first snapshot corrects it.
func (st *Store) RestoreJob(jobID string) {
	st.update(func(s *State) {
		s.Job = JobState{ID: jobID, Phase: PhaseRunning}
		s.Step = StepBuild
		s.Err = ""
	})
}

// JobCancelled forgets the tracked job and returns to the tuning step.
func (st *Store) JobCancelled() {
	st.update(func(s *State) {
		s.Job = JobState{}
		s.Step = StepTune
		s.Err = ""
		s.Clarify.Generating = false
	})
}

// AnswersSubmitted records that clarification answers went back to the
// generator and the job is producing again.
func (st *Store) AnswersSubmitted() {
	st.update(func(s *State) {
		s.Clarify.Generating = false
		s.Job.Phase = PhaseRunning
		s.Step = StepBuild
	})
}

func (st *Store) FinalizeStarted() {
	st.update(func(s *State) {
		s.Finalize.Confirming = true
		s.Err = ""
	})
}

func (st *Store) FinalizeFailed(msg string) {
	st.update(func(s *State) {
		s.Finalize.Confirming = false
		s.Err = msg
	})
}

func (st *Store) FinalizeSucceeded(res engine.CreateResult) {
	st.update(func(s *State) {
		s.Finalize.Confirming = false
		s.Finalize.Created = true
		s.Finalize.Result = &res
	})
}

// Apply folds a job event into the state and returns the side effects the
// caller must run. Events whose job id does not match the tracked job are
// dropped; that single gate covers both the poll and the push source.
func (st *Store) Apply(ev Event) []Effect {
	st.mu.Lock()
	defer st.mu.Unlock()

	id := ev.jobID()
	if id == "" || id != st.s.Job.ID {
		return nil
	}

	var effects []Effect
	s := &st.s

	switch ev := ev.(type) {
	case JobOutput:
		s.Job.Lines = append(s.Job.Lines, ev.Line)

	case JobLines:
		if len(ev.Lines) > 0 {
			s.Job.Lines = append([]string(nil), ev.Lines...)
		}

	case JobPhase:
		if s.Job.Phase.CanTransitionTo(ev.Phase) {
			s.Job.Phase = ev.Phase
		}
		if ev.Err != "" {
			s.Job.Err = ev.Err
		}

	case JobDraft:
		if s.Job.Phase.CanTransitionTo(PhaseCompleted) {
			s.Job.Phase = PhaseCompleted
		}
		s.Draft.Draft = ev.Draft
		s.Draft.ParseErr = ""
		if b, err := json.MarshalIndent(ev.Draft, "", "  "); err == nil {
			s.Draft.Text = string(b)
		}
		s.Clarify.Generating = false
		s.Step = StepBuild
		s.Job.ID = ""
		effects = append(effects, ClearPendingEffect{}, ReleaseJobEffect{JobID: id})

	case JobCompletedEmpty:
		if s.Job.Phase.CanTransitionTo(PhaseCompleted) {
			s.Job.Phase = PhaseCompleted
		}
		s.Err = MsgCompletedNoDraft
		s.Clarify.Generating = false
		s.Job.ID = ""
		effects = append(effects, ClearPendingEffect{}, ReleaseJobEffect{JobID: id})

	case JobFailed:
		if s.Job.Phase.CanTransitionTo(PhaseFailed) {
			s.Job.Phase = PhaseFailed
		}
		s.Job.Err = ev.Err
		s.Err = ev.Err
		s.Clarify.Generating = false
		s.Job.ID = ""
		effects = append(effects, ClearPendingEffect{}, ReleaseJobEffect{JobID: id})

	case JobOrphaned:
		if s.Job.Phase.CanTransitionTo(PhaseFailed) {
			s.Job.Phase = PhaseFailed
		}
		s.Err = MsgSessionLost
		s.Clarify.Generating = false
		s.Job.ID = ""
		effects = append(effects, ClearPendingEffect{}, ReleaseJobEffect{JobID: id})

	case JobQuestions:
		s.Clarify.Questions = append([]design.Question(nil), ev.Questions...)
		s.Clarify.Generating = false
		s.Step = StepClarify
	}

	return effects
}
