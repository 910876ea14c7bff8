package wizard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/personakit/adoptctl/pkg/design"
	"github.com/personakit/adoptctl/pkg/engine"
	"github.com/personakit/adoptctl/pkg/pending"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const validDraftJSON = `{"name":"Mail Triage","system_prompt":"You triage mail.","icon":"Inbox","color":"#123456"}`

type fakeSurface struct {
	mu        sync.Mutex
	snaps     map[string]engine.Snapshot
	snapErr   error
	startErr  error
	createErr error
	createRes engine.CreateResult

	started   []engine.StartRequest
	continued []string
	cancelled []string
	cleared   []string
	created   []engine.CreateRequest
	snapCalls int

	onStart func(engine.StartRequest)
}

var _ engine.Surface = (*fakeSurface)(nil)

func newFakeSurface() *fakeSurface {
	return &fakeSurface{snaps: map[string]engine.Snapshot{}}
}

func (f *fakeSurface) Start(_ context.Context, req engine.StartRequest) error {
	f.mu.Lock()
	f.started = append(f.started, req)
	onStart := f.onStart
	err := f.startErr
	if err == nil {
		f.snaps[req.JobID] = engine.Snapshot{JobID: req.JobID, Status: engine.StatusRunning}
	}
	f.mu.Unlock()
	if onStart != nil {
		onStart(req)
	}
	return err
}

func (f *fakeSurface) Continue(_ context.Context, jobID, answersJSON string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.continued = append(f.continued, jobID+" "+answersJSON)
	return nil
}

func (f *fakeSurface) Cancel(_ context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, jobID)
	return nil
}

func (f *fakeSurface) Snapshot(_ context.Context, jobID string) (engine.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapCalls++
	if f.snapErr != nil {
		return engine.Snapshot{}, f.snapErr
	}
	snap, ok := f.snaps[jobID]
	if !ok {
		return engine.Snapshot{}, errors.Wrapf(engine.ErrJobNotFound, "job %s", jobID)
	}
	return snap, nil
}

func (f *fakeSurface) ClearSnapshot(_ context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, jobID)
	delete(f.snaps, jobID)
	return nil
}

func (f *fakeSurface) CreatePersona(_ context.Context, req engine.CreateRequest) (engine.CreateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return engine.CreateResult{}, f.createErr
	}
	f.created = append(f.created, req)
	res := f.createRes
	if res.PersonaID == "" {
		res.PersonaID = "persona-1"
	}
	return res, nil
}

func (f *fakeSurface) setSnap(snap engine.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps[snap.JobID] = snap
}

func (f *fakeSurface) startedReqs() []engine.StartRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.StartRequest(nil), f.started...)
}

func (f *fakeSurface) continuedCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.continued...)
}

func (f *fakeSurface) cancelledCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cancelled...)
}

func (f *fakeSurface) clearedCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cleared...)
}

func (f *fakeSurface) createdReqs() []engine.CreateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.CreateRequest(nil), f.created...)
}

func (f *fakeSurface) snapshotCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapCalls
}

type recordSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordSink) Handle(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordSink) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recordSink) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func newTestWizard(t *testing.T, surface *fakeSurface, pend *pending.MemStore, now time.Time) *Wizard {
	t.Helper()
	w, err := New(testTemplate(t), Options{
		Surface:  surface,
		Pending:  pend,
		Clock:    func() time.Time { return now },
		NewJobID: func() string { return "job-1" },
	})
	require.NoError(t, err)
	return w
}

func startTestJob(t *testing.T, w *Wizard) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, w.Next(ctx))
	require.NoError(t, w.Next(ctx))
	require.NoError(t, w.Next(ctx))
	require.Equal(t, StepBuild, w.State().Step)
	require.Equal(t, "job-1", w.State().Job.ID)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(testTemplate(t), Options{Pending: pending.NewMemStore()})
	require.Error(t, err)
	_, err = New(testTemplate(t), Options{Surface: newFakeSurface()})
	require.Error(t, err)
}

func TestNextWalksStepsAndStartsJob(t *testing.T) {
	surface := newFakeSurface()
	w := newTestWizard(t, surface, pending.NewMemStore(), time.Now())
	ctx := context.Background()

	require.NoError(t, w.Next(ctx))
	require.Equal(t, StepConnect, w.State().Step)
	require.NoError(t, w.Next(ctx))
	require.Equal(t, StepTune, w.State().Step)

	require.NoError(t, w.Next(ctx))
	s := w.State()
	require.Equal(t, StepBuild, s.Step)
	require.Equal(t, "job-1", s.Job.ID)
	require.Equal(t, PhaseRunning, s.Job.Phase)
	require.Len(t, surface.startedReqs(), 1)
}

func TestNextOnBuildWithoutDraftHolds(t *testing.T) {
	surface := newFakeSurface()
	w := newTestWizard(t, surface, pending.NewMemStore(), time.Now())
	startTestJob(t, w)

	require.NoError(t, w.Next(context.Background()))
	require.Equal(t, StepBuild, w.State().Step)
	require.Len(t, surface.startedReqs(), 1)
}

func TestNextFromTuneRewiresExistingJob(t *testing.T) {
	surface := newFakeSurface()
	pend := pending.NewMemStore()
	w := newTestWizard(t, surface, pend, time.Now())
	startTestJob(t, w)

	w.Back()
	require.Equal(t, StepTune, w.State().Step)

	require.NoError(t, w.Next(context.Background()))
	require.Equal(t, StepBuild, w.State().Step)
	require.Len(t, surface.startedReqs(), 1)

	journal := pend.Journal()
	saves := 0
	for _, op := range journal {
		if op == "save job-1" {
			saves++
		}
	}
	require.Equal(t, 2, saves)
}

func TestOpenReattachesToRecentJob(t *testing.T) {
	now := time.Now()
	surface := newFakeSurface()
	pend := pending.NewMemStore()
	w := newTestWizard(t, surface, pend, now)

	tpl := testTemplate(t)
	pend.Seed(pending.Context{
		JobID:        "job-9",
		TemplateName: tpl.TemplateName,
		Payload:      tpl.ResultJSON,
		SavedAt:      now.Add(-2 * time.Minute),
	})
	surface.setSnap(engine.Snapshot{JobID: "job-9", Status: engine.StatusRunning})

	ok, err := w.Open(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	s := w.State()
	require.Equal(t, "job-9", s.Job.ID)
	require.Equal(t, StepBuild, s.Step)
	require.Equal(t, PhaseRunning, s.Job.Phase)

	pc, present, err := pend.Load()
	require.NoError(t, err)
	require.True(t, present)
	require.True(t, pc.SavedAt.Equal(now))
}

func TestOpenIgnoresStaleRecord(t *testing.T) {
	now := time.Now()
	surface := newFakeSurface()
	pend := pending.NewMemStore()
	w := newTestWizard(t, surface, pend, now)

	pend.Seed(pending.Context{
		JobID:        "job-9",
		TemplateName: "mail-triage",
		Payload:      "{}",
		SavedAt:      now.Add(-11 * time.Minute),
	})
	surface.setSnap(engine.Snapshot{JobID: "job-9", Status: engine.StatusRunning})

	ok, err := w.Open(context.Background())
	require.NoError(t, err)
	require.False(t, ok)

	s := w.State()
	require.Empty(t, s.Job.ID)
	require.Equal(t, StepChoose, s.Step)
	require.Empty(t, s.Err)

	_, present, err := pend.Load()
	require.NoError(t, err)
	require.False(t, present)
}

func TestOpenHonorsConfiguredMaxAge(t *testing.T) {
	now := time.Now()
	surface := newFakeSurface()
	pend := pending.NewMemStore()
	w, err := New(testTemplate(t), Options{
		Surface:       surface,
		Pending:       pend,
		Clock:         func() time.Time { return now },
		PendingMaxAge: time.Hour,
	})
	require.NoError(t, err)

	pend.Seed(pending.Context{JobID: "job-9", TemplateName: "mail-triage", SavedAt: now.Add(-30 * time.Minute)})
	surface.setSnap(engine.Snapshot{JobID: "job-9", Status: engine.StatusRunning})

	ok, err := w.Open(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestOpenIgnoresUnresolvableJob(t *testing.T) {
	now := time.Now()
	surface := newFakeSurface()
	pend := pending.NewMemStore()
	w := newTestWizard(t, surface, pend, now)

	pend.Seed(pending.Context{JobID: "job-gone", TemplateName: "mail-triage", SavedAt: now.Add(-1 * time.Minute)})

	ok, err := w.Open(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, w.State().Job.ID)

	_, present, err := pend.Load()
	require.NoError(t, err)
	require.False(t, present)
}

func TestOpenIgnoresUnreadableRecord(t *testing.T) {
	surface := newFakeSurface()
	pend := pending.NewMemStore()
	pend.LoadErr = errors.New("corrupt record")
	w := newTestWizard(t, surface, pend, time.Now())

	ok, err := w.Open(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOpenWithoutRecord(t *testing.T) {
	w := newTestWizard(t, newFakeSurface(), pending.NewMemStore(), time.Now())
	ok, err := w.Open(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestConfirmCreatesExactlyOnce(t *testing.T) {
	surface := newFakeSurface()
	w := newTestWizard(t, surface, pending.NewMemStore(), time.Now())
	w.Store().UpdateDraftText(validDraftJSON)
	w.Store().SetStep(StepCreate)

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Confirm(ctx)
		}()
	}
	wg.Wait()

	require.Len(t, surface.createdReqs(), 1)
	s := w.State()
	require.True(t, s.Finalize.Created)
	require.Equal(t, "persona-1", s.Finalize.Result.PersonaID)

	require.NoError(t, w.Confirm(ctx))
	require.Len(t, surface.createdReqs(), 1)
}

func TestConfirmRejectsInvalidDraftLocally(t *testing.T) {
	surface := newFakeSurface()
	w := newTestWizard(t, surface, pending.NewMemStore(), time.Now())
	w.Store().UpdateDraftText("{ this is not json")

	err := w.Confirm(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "not valid JSON")
	require.Empty(t, surface.createdReqs())

	s := w.State()
	require.Contains(t, s.Err, "not valid JSON")
	require.False(t, s.Finalize.Confirming)
	require.False(t, s.Finalize.Created)
}

func TestConfirmRejectsEmptySystemPromptLocally(t *testing.T) {
	surface := newFakeSurface()
	w := newTestWizard(t, surface, pending.NewMemStore(), time.Now())
	w.Store().UpdateDraftText(`{"name":"NoPrompt"}`)

	err := w.Confirm(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed validation")
	require.Empty(t, surface.createdReqs())
}

func TestConfirmSurfacesEntityWarnings(t *testing.T) {
	surface := newFakeSurface()
	surface.createRes = engine.CreateResult{
		PersonaID:       "p-7",
		TriggersCreated: 1,
		EntityErrors: []engine.EntityError{
			{EntityType: "trigger", EntityName: "webhook", Err: "unsupported config"},
		},
		ConnectorsNeedingSetup: []string{"gmail"},
	}
	w := newTestWizard(t, surface, pending.NewMemStore(), time.Now())
	w.Store().UpdateDraftText(validDraftJSON)

	require.NoError(t, w.Confirm(context.Background()))

	s := w.State()
	require.True(t, s.Finalize.Created)
	require.Empty(t, s.Err)
	require.Len(t, s.Finalize.Result.EntityErrors, 1)

	view := w.View()
	require.Len(t, view.Warnings, 1)
	require.Contains(t, view.Warnings[0], "webhook")
	require.Equal(t, []string{"gmail"}, view.NeedsSetup)
	require.Equal(t, "p-7", view.PersonaID)
}

func TestConfirmNormalizesDraftBeforeSending(t *testing.T) {
	surface := newFakeSurface()
	w := newTestWizard(t, surface, pending.NewMemStore(), time.Now())
	w.Store().UpdateDraftText(`{"system_prompt":"serve"}`)

	require.NoError(t, w.Confirm(context.Background()))

	req := surface.createdReqs()[0]
	require.Contains(t, req.DraftJSON, "mail-triage")
	require.Contains(t, req.DraftJSON, design.DefaultColor)
	require.Contains(t, req.DraftJSON, design.DefaultIcon)
}

func TestSubmitAnswersResumesGeneration(t *testing.T) {
	surface := newFakeSurface()
	w := newTestWizard(t, surface, pending.NewMemStore(), time.Now())
	startTestJob(t, w)

	qs := []design.Question{{ID: "q1", Question: "Which mailbox?", Type: "text"}}
	w.Handle(JobQuestions{JobID: "job-1", Questions: qs})
	require.Equal(t, StepClarify, w.State().Step)

	w.Store().SetAnswer("q1", "inbox only")
	require.NoError(t, w.SubmitAnswers(context.Background()))

	calls := surface.continuedCalls()
	require.Len(t, calls, 1)
	require.Contains(t, calls[0], "job-1")
	require.Contains(t, calls[0], "inbox only")

	s := w.State()
	require.Equal(t, StepBuild, s.Step)
	require.Equal(t, PhaseRunning, s.Job.Phase)
}

func TestSubmitAnswersRequiresAnswers(t *testing.T) {
	surface := newFakeSurface()
	w := newTestWizard(t, surface, pending.NewMemStore(), time.Now())
	startTestJob(t, w)
	w.Handle(JobQuestions{JobID: "job-1", Questions: []design.Question{{ID: "q1"}}})

	err := w.SubmitAnswers(context.Background())
	require.Error(t, err)
	require.Empty(t, surface.continuedCalls())
}

func TestCancelForgetsJobAndReturnsToTune(t *testing.T) {
	surface := newFakeSurface()
	pend := pending.NewMemStore()
	w := newTestWizard(t, surface, pend, time.Now())
	startTestJob(t, w)

	require.NoError(t, w.Cancel(context.Background()))

	require.Equal(t, []string{"job-1"}, surface.cancelledCalls())
	s := w.State()
	require.Empty(t, s.Job.ID)
	require.Equal(t, StepTune, s.Step)
	require.Equal(t, PhaseIdle, s.Job.Phase)

	_, present, err := pend.Load()
	require.NoError(t, err)
	require.False(t, present)
}

func TestCancelWithoutJobIsNoop(t *testing.T) {
	surface := newFakeSurface()
	w := newTestWizard(t, surface, pending.NewMemStore(), time.Now())
	require.NoError(t, w.Cancel(context.Background()))
	require.Empty(t, surface.cancelledCalls())
}

func TestHandleTerminalFailureCleansUp(t *testing.T) {
	surface := newFakeSurface()
	pend := pending.NewMemStore()
	w := newTestWizard(t, surface, pend, time.Now())
	startTestJob(t, w)

	w.Handle(JobFailed{JobID: "job-1", Err: "generator exploded"})

	s := w.State()
	require.Equal(t, PhaseFailed, s.Job.Phase)
	require.Equal(t, "generator exploded", s.Err)
	require.Empty(t, s.Job.ID)

	_, present, err := pend.Load()
	require.NoError(t, err)
	require.False(t, present)
	require.Contains(t, surface.clearedCalls(), "job-1")
}

func TestRunStopsWhenContextEnds(t *testing.T) {
	surface := newFakeSurface()
	w := newTestWizard(t, surface, pending.NewMemStore(), time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poll loop did not stop")
	}
}
