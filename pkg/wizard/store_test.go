package wizard

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/personakit/adoptctl/pkg/design"
)

func testTemplate(t *testing.T) TemplateContext {
	t.Helper()
	res := &design.Result{
		ServiceFlow: []string{
			"Watch {{mailbox}} for new mail",
			"Summarize and post to {{channel}}",
		},
		Summary:        "Mail triage assistant",
		SuggestedTools: []string{"read_mail", "send_slack"},
		SuggestedTriggers: []design.SuggestedTrigger{
			{TriggerType: "schedule", Config: map[string]any{"cron": "0 8 * * *"}, Description: "Morning sweep"},
			{TriggerType: "webhook", Description: "On demand"},
		},
		SuggestedConnectors: []design.SuggestedConnector{
			{Name: "gmail", Label: "Gmail"},
		},
	}
	js, err := res.MarshalString()
	require.NoError(t, err)
	return TemplateContext{TemplateName: "mail-triage", Result: res, ResultJSON: js}
}

func TestApplyIgnoresEventsForOtherJobs(t *testing.T) {
	st := NewStore(testTemplate(t))
	st.JobStarted("job-a")

	require.Empty(t, st.Apply(JobOutput{JobID: "job-b", Line: "nope"}))
	require.Empty(t, st.Apply(JobFailed{JobID: "job-b", Err: "boom"}))

	s := st.Get()
	require.Empty(t, s.Job.Lines)
	require.Equal(t, PhaseRunning, s.Job.Phase)
	require.Equal(t, "job-a", s.Job.ID)

	fresh := NewStore(testTemplate(t))
	require.Empty(t, fresh.Apply(JobFailed{JobID: "job-a", Err: "boom"}))
	require.Equal(t, PhaseIdle, fresh.Get().Job.Phase)
}

func TestPhaseTransitions(t *testing.T) {
	cases := []struct {
		from, to Phase
		ok       bool
	}{
		{PhaseIdle, PhaseRunning, true},
		{PhaseIdle, PhaseFailed, true},
		{PhaseRunning, PhaseCompleted, true},
		{PhaseRunning, PhaseFailed, true},
		{PhaseRunning, PhaseRunning, true},
		{PhaseCompleted, PhaseCompleted, true},
		{PhaseCompleted, PhaseRunning, false},
		{PhaseFailed, PhaseRunning, false},
		{PhaseCompleted, PhaseFailed, false},
		{PhaseFailed, PhaseCompleted, false},
		{PhaseRunning, PhaseIdle, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestPhaseNeverRegressesAfterTerminal(t *testing.T) {
	st := NewStore(testTemplate(t))
	st.JobStarted("j")

	st.Apply(JobPhase{JobID: "j", Phase: PhaseCompleted})
	require.Equal(t, PhaseCompleted, st.Get().Job.Phase)

	st.Apply(JobPhase{JobID: "j", Phase: PhaseRunning})
	require.Equal(t, PhaseCompleted, st.Get().Job.Phase)
}

func TestPushLinesAppendPollLinesReplace(t *testing.T) {
	st := NewStore(testTemplate(t))
	st.JobStarted("j")

	st.Apply(JobOutput{JobID: "j", Line: "one"})
	st.Apply(JobOutput{JobID: "j", Line: "two"})
	require.Equal(t, []string{"one", "two"}, st.Get().Job.Lines)

	st.Apply(JobLines{JobID: "j", Lines: []string{"one", "two", "three"}})
	require.Equal(t, []string{"one", "two", "three"}, st.Get().Job.Lines)

	st.Apply(JobLines{JobID: "j", Lines: nil})
	require.Equal(t, []string{"one", "two", "three"}, st.Get().Job.Lines)
}

func TestPollSnapshotsDominateAnyPushInterleaving(t *testing.T) {
	polls := [][]string{
		{"a"},
		{"a", "b", "c"},
		{"a", "b", "c", "d", "e"},
	}

	interleaved := NewStore(testTemplate(t))
	interleaved.JobStarted("j")
	interleaved.Apply(JobOutput{JobID: "j", Line: "a"})
	interleaved.Apply(JobLines{JobID: "j", Lines: polls[0]})
	interleaved.Apply(JobOutput{JobID: "j", Line: "b"})
	interleaved.Apply(JobOutput{JobID: "j", Line: "c"})
	interleaved.Apply(JobLines{JobID: "j", Lines: polls[1]})
	interleaved.Apply(JobOutput{JobID: "j", Line: "d"})
	interleaved.Apply(JobLines{JobID: "j", Lines: polls[2]})

	pollOnly := NewStore(testTemplate(t))
	pollOnly.JobStarted("j")
	for _, p := range polls {
		pollOnly.Apply(JobLines{JobID: "j", Lines: p})
	}

	require.Equal(t, pollOnly.Get().Job.Lines, interleaved.Get().Job.Lines)
	require.Equal(t, []string{"a", "b", "c", "d", "e"}, interleaved.Get().Job.Lines)
}

func TestDraftCompletionReleasesJob(t *testing.T) {
	st := NewStore(testTemplate(t))
	st.JobStarted("j")

	d := &design.Draft{Name: "Mail Triage", SystemPrompt: "You triage mail."}
	effects := st.Apply(JobDraft{JobID: "j", Draft: d})
	require.Equal(t, []Effect{ClearPendingEffect{}, ReleaseJobEffect{JobID: "j"}}, effects)

	s := st.Get()
	require.Equal(t, PhaseCompleted, s.Job.Phase)
	require.Empty(t, s.Job.ID)
	require.Equal(t, StepBuild, s.Step)
	require.NotNil(t, s.Draft.Draft)
	require.Contains(t, s.Draft.Text, `"system_prompt"`)
	require.Empty(t, s.Draft.ParseErr)
}

func TestCompletedWithoutDraftExplainsItself(t *testing.T) {
	st := NewStore(testTemplate(t))
	st.JobStarted("j")

	effects := st.Apply(JobCompletedEmpty{JobID: "j"})
	require.Len(t, effects, 2)

	s := st.Get()
	require.Equal(t, PhaseCompleted, s.Job.Phase)
	require.Equal(t, MsgCompletedNoDraft, s.Err)
	require.Nil(t, s.Draft.Draft)
	require.Empty(t, s.Job.ID)
}

func TestOrphanedJobSuggestsRestart(t *testing.T) {
	st := NewStore(testTemplate(t))
	st.JobStarted("j")

	effects := st.Apply(JobOrphaned{JobID: "j"})
	require.Len(t, effects, 2)

	s := st.Get()
	require.Contains(t, s.Err, "backend may have restarted")
	require.Contains(t, s.Err, "start the adoption again")
	require.Equal(t, PhaseFailed, s.Job.Phase)
	require.Empty(t, s.Job.ID)
}

func TestQuestionsMoveWizardToClarify(t *testing.T) {
	st := NewStore(testTemplate(t))
	st.JobStarted("j")

	qs := []design.Question{{ID: "q1", Question: "Which mailbox?", Type: "text"}}
	effects := st.Apply(JobQuestions{JobID: "j", Questions: qs})
	require.Empty(t, effects)

	s := st.Get()
	require.Equal(t, StepClarify, s.Step)
	require.Equal(t, qs, s.Clarify.Questions)
	require.Equal(t, PhaseRunning, s.Job.Phase)
	require.Equal(t, "j", s.Job.ID)
}

func TestUpdateDraftTextKeepsLastValidDraft(t *testing.T) {
	st := NewStore(testTemplate(t))
	st.JobStarted("j")
	st.Apply(JobDraft{JobID: "j", Draft: &design.Draft{Name: "Keeper", SystemPrompt: "serve"}})

	st.UpdateDraftText("{ definitely not json")
	s := st.Get()
	require.NotEmpty(t, s.Draft.ParseErr)
	require.NotNil(t, s.Draft.Draft)
	require.Equal(t, "Keeper", s.Draft.Draft.Name)

	st.UpdateDraftText(`{"name":"Edited","system_prompt":"serve better"}`)
	s = st.Get()
	require.Empty(t, s.Draft.ParseErr)
	require.Equal(t, "Edited", s.Draft.Draft.Name)
}

func TestScopedUpdatesTouchOnlyTheirRecord(t *testing.T) {
	st := NewStore(testTemplate(t))
	before := st.Get()

	st.SetVariable("mailbox", "ops@example.com")
	st.ToggleTool(1)
	st.SetTriggerConfig(0, "cron", "0 9 * * *")

	s := st.Get()
	require.Equal(t, before.Job, s.Job)
	require.Equal(t, before.Draft, s.Draft)
	require.Equal(t, before.Clarify, s.Clarify)
	require.Equal(t, before.Step, s.Step)

	require.Equal(t, "ops@example.com", s.Variables["mailbox"])
	require.False(t, s.Selection.Tools[1])
	require.True(t, s.Selection.Tools[0])
	require.Equal(t, "0 9 * * *", s.TriggerConfigs[0]["cron"])
}

func TestToggleOutOfRangeIgnored(t *testing.T) {
	st := NewStore(testTemplate(t))
	st.ToggleTool(99)
	st.ToggleTool(-1)
	st.SetTriggerConfig(99, "cron", "x")

	s := st.Get()
	require.True(t, s.Selection.Tools[0])
	require.True(t, s.Selection.Tools[1])
	require.Empty(t, s.TriggerConfigs)
}

func TestGetReturnsIsolatedState(t *testing.T) {
	st := NewStore(testTemplate(t))
	st.JobStarted("j")
	st.Apply(JobOutput{JobID: "j", Line: "one"})

	s := st.Get()
	s.Job.Lines[0] = "mutated"
	s.Variables["sneak"] = "in"
	s.Selection.ToggleTool(0)

	fresh := st.Get()
	require.Equal(t, "one", fresh.Job.Lines[0])
	require.NotContains(t, fresh.Variables, "sneak")
	require.True(t, fresh.Selection.Tools[0])
}
