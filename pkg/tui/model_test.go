package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/personakit/adoptctl/pkg/bus"
	"github.com/personakit/adoptctl/pkg/design"
	"github.com/personakit/adoptctl/pkg/engine"
	"github.com/personakit/adoptctl/pkg/pending"
	"github.com/personakit/adoptctl/pkg/wizard"
)

func newTestWizard(t *testing.T) *wizard.Wizard {
	t.Helper()

	res := &design.Result{
		Summary:        "Deploy notifier",
		SuggestedTools: []string{"notify_slack", "read_logs"},
		SuggestedTriggers: []design.SuggestedTrigger{
			{TriggerType: "schedule", Description: "daily"},
		},
	}
	raw, err := res.MarshalString()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	gen := &engine.ScriptedGenerator{Turns: []engine.GenerateTurn{
		{Output: `{"name":"Demo","system_prompt":"do the thing"}`},
	}}
	surface := engine.NewLocal(ctx, engine.LocalOptions{Generator: gen})

	w, err := wizard.New(wizard.TemplateContext{
		TemplateName: "Demo",
		Result:       res,
		ResultJSON:   raw,
	}, wizard.Options{Surface: surface, Pending: pending.NewMemStore()})
	require.NoError(t, err)
	return w
}

func press(t *testing.T, m Model, key string) Model {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
	model := next.(Model)
	if cmd != nil {
		next, _ = model.Update(cmd())
		model = next.(Model)
	}
	return model
}

func pressEnter(t *testing.T, m Model) Model {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model := next.(Model)
	if cmd != nil {
		next, _ = model.Update(cmd())
		model = next.(Model)
	}
	return model
}

func TestChooseToggleAndAdvance(t *testing.T) {
	w := newTestWizard(t)
	m := NewModel(w)

	m = press(t, m, " ")
	require.False(t, w.State().Selection.Tools[0])
	m = press(t, m, " ")
	require.True(t, w.State().Selection.Tools[0])

	m = pressEnter(t, m)
	require.Equal(t, wizard.StepConnect, w.State().Step)

	m = pressEnter(t, m)
	require.Equal(t, wizard.StepTune, w.State().Step)
	_ = m
}

func TestTuneEnterLaunchesJob(t *testing.T) {
	w := newTestWizard(t)
	m := NewModel(w)

	m = pressEnter(t, m) // choose -> connect
	m = pressEnter(t, m) // connect -> tune
	m = pressEnter(t, m) // tune -> launch

	st := w.State()
	require.Equal(t, wizard.StepBuild, st.Step)
	require.NotEmpty(t, st.Job.ID)
	_ = m
}

func TestBackNavigation(t *testing.T) {
	w := newTestWizard(t)
	m := NewModel(w)

	m = pressEnter(t, m)
	require.Equal(t, wizard.StepConnect, w.State().Step)
	m = press(t, m, "b")
	require.Equal(t, wizard.StepChoose, w.State().Step)
	_ = m
}

func TestViewShowsTemplateAndError(t *testing.T) {
	w := newTestWizard(t)
	w.Store().SetError("something broke")
	m := NewModel(w).refresh()

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = next.(Model)

	view := m.View()
	require.Contains(t, view, "adopt: Demo")
	require.Contains(t, view, "something broke")
}

type sendRecorder struct {
	ch chan tea.Msg
}

func (r *sendRecorder) Send(msg tea.Msg) { r.ch <- msg }

func TestUIForwarder(t *testing.T) {
	b, err := bus.NewInMemoryBus()
	require.NoError(t, err)

	rec := &sendRecorder{ch: make(chan tea.Msg, 4)}
	RegisterUIForwarder(b, rec)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Run(ctx)
	}()
	select {
	case <-b.Router.Running():
	case <-time.After(2 * time.Second):
		t.Fatal("router did not start")
	}

	snap := wizard.StateSnapshot{Step: "build", TemplateName: "Demo", Phase: "running"}
	require.NoError(t, bus.Publish(b.Publisher, bus.TopicUIMessages, bus.UITypeWizardSnapshot, snap))

	select {
	case msg := <-rec.ch:
		sm, ok := msg.(SnapshotMsg)
		require.True(t, ok)
		require.Equal(t, "build", sm.Snapshot.Step)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot forwarded")
	}

	app := wizard.OutputAppend{AdoptID: "j1", Line: "working"}
	require.NoError(t, bus.Publish(b.Publisher, bus.TopicUIMessages, bus.UITypeOutputAppend, app))

	select {
	case msg := <-rec.ch:
		om, ok := msg.(OutputAppendMsg)
		require.True(t, ok)
		require.Equal(t, "working", om.Append.Line)
	case <-time.After(2 * time.Second):
		t.Fatal("no output forwarded")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("bus did not stop")
	}
}
