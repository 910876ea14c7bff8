package wizard

import (
	"github.com/rs/zerolog/log"

	"github.com/personakit/adoptctl/pkg/bus"
	"github.com/personakit/adoptctl/pkg/design"
)

// StateSnapshot is the render-ready projection of wizard state published on
// the UI topic after every change.
type StateSnapshot struct {
	Step         string            `json:"step"`
	StepIndex    int               `json:"stepIndex"`
	TemplateName string            `json:"templateName"`
	AdoptID      string            `json:"adoptId,omitempty"`
	Phase        string            `json:"phase"`
	Lines        []string          `json:"lines,omitempty"`
	Error        string            `json:"error,omitempty"`
	DraftText    string            `json:"draftText,omitempty"`
	DraftValid   bool              `json:"draftValid"`
	DraftName    string            `json:"draftName,omitempty"`
	Questions    []design.Question `json:"questions,omitempty"`
	Answers      map[string]string `json:"answers,omitempty"`
	Confirming   bool              `json:"confirming"`
	Created      bool              `json:"created"`
	PersonaID    string            `json:"personaId,omitempty"`
	Warnings     []string          `json:"warnings,omitempty"`
	NeedsSetup   []string          `json:"needsSetup,omitempty"`
}

// OutputAppend carries one new output line for incremental UI updates.
type OutputAppend struct {
	AdoptID string `json:"adoptId"`
	Line    string `json:"line"`
}

// View projects the current state into its UI snapshot.
func (w *Wizard) View() StateSnapshot {
	return viewOf(w.store.Get())
}

func viewOf(s State) StateSnapshot {
	snap := StateSnapshot{
		Step:         s.Step.String(),
		StepIndex:    s.Step.Index(),
		TemplateName: s.Template.TemplateName,
		AdoptID:      s.Job.ID,
		Phase:        s.Job.Phase.String(),
		Lines:        s.Job.Lines,
		Error:        s.Err,
		DraftText:    s.Draft.Text,
		DraftValid:   s.Draft.Draft != nil && s.Draft.ParseErr == "",
		Questions:    s.Clarify.Questions,
		Answers:      s.Clarify.Answers,
		Confirming:   s.Finalize.Confirming,
		Created:      s.Finalize.Created,
	}
	if s.Draft.Draft != nil {
		snap.DraftName = s.Draft.Draft.Name
	}
	if s.Finalize.Result != nil {
		snap.PersonaID = s.Finalize.Result.PersonaID
		snap.NeedsSetup = s.Finalize.Result.ConnectorsNeedingSetup
		for _, ee := range s.Finalize.Result.EntityErrors {
			snap.Warnings = append(snap.Warnings, ee.Error())
		}
	}
	return snap
}

func (w *Wizard) notify() {
	if w.uiPub == nil {
		return
	}
	if err := bus.Publish(w.uiPub, bus.TopicUIMessages, bus.UITypeWizardSnapshot, w.View()); err != nil {
		log.Debug().Err(err).Msg("publish wizard snapshot failed")
	}
}

// notifyEvent publishes the cheap incremental form for pushed lines and the
// full snapshot for everything else.
func (w *Wizard) notifyEvent(ev Event) {
	if w.uiPub == nil {
		return
	}
	if out, ok := ev.(JobOutput); ok {
		if err := bus.Publish(w.uiPub, bus.TopicUIMessages, bus.UITypeOutputAppend, OutputAppend{AdoptID: out.JobID, Line: out.Line}); err != nil {
			log.Debug().Err(err).Msg("publish output append failed")
		}
		return
	}
	w.notify()
}
