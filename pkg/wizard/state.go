package wizard

import (
	"github.com/personakit/adoptctl/pkg/design"
	"github.com/personakit/adoptctl/pkg/engine"
	"github.com/personakit/adoptctl/pkg/pending"
)

// TemplateContext identifies the design result the wizard is adopting.
// Result is treated as immutable once the wizard is constructed; ResultJSON
// is the serialized form handed to the generator.
type TemplateContext struct {
	TemplateName string
	ReviewID     string
	Result       *design.Result
	ResultJSON   string
}

// FromPending rebuilds a template context from a persisted adoption record,
// for reattaching outside the session that launched the job. The payload in
// the record is the already filtered and substituted design result.
func FromPending(pc pending.Context) (TemplateContext, error) {
	res, err := design.ParseResult(pc.Payload)
	if err != nil {
		return TemplateContext{}, err
	}
	return TemplateContext{
		TemplateName: pc.TemplateName,
		Result:       res,
		ResultJSON:   pc.Payload,
	}, nil
}

// JobState tracks the background generation job. ID is non-empty exactly
// while a launched job has not yet been terminally cleared.
type JobState struct {
	ID    string
	Phase Phase
	Lines []string
	Err   string
}

// ClarifyState holds the optional mid-generation clarification round.
type ClarifyState struct {
	Questions  []design.Question
	Answers    map[string]string
	Generating bool
}

// Asked reports whether the generator ever raised clarification questions
// during this wizard session.
func (c ClarifyState) Asked() bool { return len(c.Questions) > 0 }

// DraftState keeps the generated persona draft alongside its editable
// serialized form. When Text no longer parses, ParseErr is set and Draft
// retains the last valid value.
type DraftState struct {
	Draft    *design.Draft
	Text     string
	ParseErr string
}

// FinalizeState records persona creation progress and outcome.
type FinalizeState struct {
	Confirming bool
	Created    bool
	Result     *engine.CreateResult
}

// State is the full wizard state. Sub-records are structurally separate so
// that updates stay scoped to the record they concern.
type State struct {
	Step           Step
	Template       TemplateContext
	Selection      design.Selection
	Variables      map[string]string
	TriggerConfigs map[int]map[string]any
	AdjustmentNote string
	Clarify        ClarifyState
	Job            JobState
	Draft          DraftState
	Finalize       FinalizeState
	Err            string
}

func (s State) clone() State {
	out := s
	out.Selection = s.Selection.Clone()
	out.Variables = cloneStringMap(s.Variables)
	out.TriggerConfigs = cloneTriggerConfigs(s.TriggerConfigs)
	out.Job.Lines = cloneStrings(s.Job.Lines)
	out.Clarify.Questions = append([]design.Question(nil), s.Clarify.Questions...)
	out.Clarify.Answers = cloneStringMap(s.Clarify.Answers)
	if s.Finalize.Result != nil {
		res := *s.Finalize.Result
		res.ConnectorsNeedingSetup = cloneStrings(s.Finalize.Result.ConnectorsNeedingSetup)
		res.EntityErrors = append([]engine.EntityError(nil), s.Finalize.Result.EntityErrors...)
		out.Finalize.Result = &res
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneTriggerConfigs(in map[int]map[string]any) map[int]map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[int]map[string]any, len(in))
	for idx, cfg := range in {
		cp := make(map[string]any, len(cfg))
		for k, v := range cfg {
			cp[k] = v
		}
		out[idx] = cp
	}
	return out
}
