package wizard

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/personakit/adoptctl/pkg/design"
	"github.com/personakit/adoptctl/pkg/engine"
)

func newPollerFixture(t *testing.T) (*fakeSurface, *Store, *recordSink, *Poller) {
	t.Helper()
	surface := newFakeSurface()
	store := NewStore(testTemplate(t))
	sink := &recordSink{}
	p := &Poller{Surface: surface, Store: store, Sink: sink, Interval: time.Hour}
	return surface, store, sink, p
}

func TestTickWithoutJobDoesNothing(t *testing.T) {
	surface, _, sink, p := newPollerFixture(t)

	p.Tick(context.Background())

	require.Empty(t, sink.all())
	require.Zero(t, surface.snapshotCalls())
}

func TestTickDispatchesOnlyChangedData(t *testing.T) {
	surface, store, sink, p := newPollerFixture(t)
	store.JobStarted("j")
	surface.setSnap(engine.Snapshot{JobID: "j", Status: engine.StatusRunning, Lines: []string{"boot"}})

	ctx := context.Background()
	p.Tick(ctx)

	events := sink.all()
	require.Len(t, events, 2)
	require.Equal(t, JobLines{JobID: "j", Lines: []string{"boot"}}, events[0])
	require.Equal(t, JobPhase{JobID: "j", Phase: PhaseRunning}, events[1])

	sink.reset()
	p.Tick(ctx)
	require.Empty(t, sink.all())

	surface.setSnap(engine.Snapshot{JobID: "j", Status: engine.StatusRunning, Lines: []string{"boot", "scan"}})
	p.Tick(ctx)

	events = sink.all()
	require.Len(t, events, 1)
	require.Equal(t, JobLines{JobID: "j", Lines: []string{"boot", "scan"}}, events[0])
}

func TestTickOrderOnCompletionWithDraft(t *testing.T) {
	surface, store, sink, p := newPollerFixture(t)
	store.JobStarted("j")
	d := &design.Draft{Name: "Done", SystemPrompt: "serve"}
	surface.setSnap(engine.Snapshot{JobID: "j", Status: engine.StatusCompleted, Lines: []string{"a", "b"}, Draft: d})

	p.Tick(context.Background())

	events := sink.all()
	require.Len(t, events, 3)
	require.Equal(t, JobLines{JobID: "j", Lines: []string{"a", "b"}}, events[0])
	require.Equal(t, JobPhase{JobID: "j", Phase: PhaseCompleted}, events[1])
	require.Equal(t, JobDraft{JobID: "j", Draft: d}, events[2])
}

func TestTickCompletedWithoutDraft(t *testing.T) {
	surface, store, sink, p := newPollerFixture(t)
	store.JobStarted("j")
	surface.setSnap(engine.Snapshot{JobID: "j", Status: engine.StatusCompleted})

	p.Tick(context.Background())

	events := sink.all()
	require.Len(t, events, 2)
	require.Equal(t, JobPhase{JobID: "j", Phase: PhaseCompleted}, events[0])
	require.Equal(t, JobCompletedEmpty{JobID: "j"}, events[1])
}

func TestTickFailedDispatchesPhaseThenFailure(t *testing.T) {
	surface, store, sink, p := newPollerFixture(t)
	store.JobStarted("j")
	surface.setSnap(engine.Snapshot{JobID: "j", Status: engine.StatusFailed, Err: "out of patience"})

	p.Tick(context.Background())

	events := sink.all()
	require.Len(t, events, 2)
	require.Equal(t, JobPhase{JobID: "j", Phase: PhaseFailed, Err: "out of patience"}, events[0])
	require.Equal(t, JobFailed{JobID: "j", Err: "out of patience"}, events[1])
}

func TestTickDeliversQuestionsOnce(t *testing.T) {
	surface, store, sink, p := newPollerFixture(t)
	store.JobStarted("j")
	qs := []design.Question{{ID: "q1", Question: "Which mailbox?", Type: "text"}}
	surface.setSnap(engine.Snapshot{JobID: "j", Status: engine.StatusAwaitingAnswers, Lines: []string{"thinking"}, Questions: qs})

	ctx := context.Background()
	p.Tick(ctx)

	events := sink.all()
	require.Len(t, events, 2)
	require.Equal(t, JobLines{JobID: "j", Lines: []string{"thinking"}}, events[0])
	require.Equal(t, JobQuestions{JobID: "j", Questions: qs}, events[1])

	sink.reset()
	p.Tick(ctx)
	require.Empty(t, sink.all())
}

func TestTickUnknownJobReportsOrphaned(t *testing.T) {
	_, store, sink, p := newPollerFixture(t)
	store.JobStarted("j")

	p.Tick(context.Background())

	events := sink.all()
	require.Len(t, events, 1)
	require.Equal(t, JobOrphaned{JobID: "j"}, events[0])
}

func TestTickTransientErrorKeepsQuiet(t *testing.T) {
	surface, store, sink, p := newPollerFixture(t)
	store.JobStarted("j")
	surface.snapErr = errors.New("network blip")

	p.Tick(context.Background())

	require.Empty(t, sink.all())
}

func TestTickMemoResetsWhenJobChanges(t *testing.T) {
	surface, store, sink, p := newPollerFixture(t)
	ctx := context.Background()

	store.JobStarted("j1")
	surface.setSnap(engine.Snapshot{JobID: "j1", Status: engine.StatusRunning, Lines: []string{"x"}})
	p.Tick(ctx)
	require.Len(t, sink.all(), 2)

	store.JobStarted("j2")
	surface.setSnap(engine.Snapshot{JobID: "j2", Status: engine.StatusRunning, Lines: []string{"x"}})
	sink.reset()
	p.Tick(ctx)
	require.Len(t, sink.all(), 2)
}
