package wizard

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/require"

	"github.com/personakit/adoptctl/pkg/bus"
)

func envMsg(t *testing.T, typ string, payload any) *message.Message {
	t.Helper()
	env, err := bus.NewEnvelope(typ, payload)
	require.NoError(t, err)
	b, err := env.MarshalJSONBytes()
	require.NoError(t, err)
	return message.NewMessage(watermill.NewUUID(), b)
}

func TestCorrelatorForwardsOnlyTrackedJob(t *testing.T) {
	sink := &recordSink{}
	c := NewCorrelator(sink)
	c.Track("job-1")

	msg := envMsg(t, bus.TypeJobOutput, bus.JobOutputEvent{AdoptID: "job-1", Line: "hello"})
	require.NoError(t, c.handleOutput(msg))

	other := envMsg(t, bus.TypeJobOutput, bus.JobOutputEvent{AdoptID: "job-2", Line: "ignored"})
	require.NoError(t, c.handleOutput(other))

	events := sink.all()
	require.Len(t, events, 1)
	require.Equal(t, JobOutput{JobID: "job-1", Line: "hello"}, events[0])
}

func TestCorrelatorDropsEverythingWhileUntracked(t *testing.T) {
	sink := &recordSink{}
	c := NewCorrelator(sink)

	msg := envMsg(t, bus.TypeJobOutput, bus.JobOutputEvent{AdoptID: "job-1", Line: "early"})
	require.NoError(t, c.handleOutput(msg))
	require.Empty(t, sink.all())
}

func TestCorrelatorResetStopsForwarding(t *testing.T) {
	sink := &recordSink{}
	c := NewCorrelator(sink)
	c.Track("job-1")
	c.Reset()

	msg := envMsg(t, bus.TypeJobOutput, bus.JobOutputEvent{AdoptID: "job-1", Line: "late"})
	require.NoError(t, c.handleOutput(msg))
	require.Empty(t, sink.all())
	require.Empty(t, c.Tracked())
}

func TestCorrelatorStatusMapping(t *testing.T) {
	sink := &recordSink{}
	c := NewCorrelator(sink)
	c.Track("job-1")

	require.NoError(t, c.handleStatus(envMsg(t, bus.TypeJobStatus, bus.JobStatusEvent{AdoptID: "job-1", Status: "running"})))
	require.NoError(t, c.handleStatus(envMsg(t, bus.TypeJobStatus, bus.JobStatusEvent{AdoptID: "job-1", Status: "awaiting_answers"})))
	require.NoError(t, c.handleStatus(envMsg(t, bus.TypeJobStatus, bus.JobStatusEvent{AdoptID: "job-1", Status: "completed"})))
	require.NoError(t, c.handleStatus(envMsg(t, bus.TypeJobStatus, bus.JobStatusEvent{AdoptID: "job-1", Status: "failed", Err: "boom"})))

	events := sink.all()
	require.Len(t, events, 3)
	require.Equal(t, JobPhase{JobID: "job-1", Phase: PhaseRunning}, events[0])
	require.Equal(t, JobPhase{JobID: "job-1", Phase: PhaseCompleted}, events[1])
	require.Equal(t, JobFailed{JobID: "job-1", Err: "boom"}, events[2])
}

func TestCorrelatorIgnoresForeignEnvelopeTypes(t *testing.T) {
	sink := &recordSink{}
	c := NewCorrelator(sink)
	c.Track("job-1")

	msg := envMsg(t, "something.else", map[string]string{"adopt_id": "job-1"})
	require.NoError(t, c.handleOutput(msg))
	require.Empty(t, sink.all())
}

func TestCorrelatorRejectsGarbagePayload(t *testing.T) {
	sink := &recordSink{}
	c := NewCorrelator(sink)
	c.Track("job-1")

	msg := message.NewMessage(watermill.NewUUID(), []byte("not json"))
	require.Error(t, c.handleOutput(msg))
	require.Error(t, c.handleStatus(msg))
	require.Empty(t, sink.all())
}
