package wizard

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/personakit/adoptctl/pkg/engine"
)

// DefaultPollInterval paces the snapshot loop. Commentary output arrives in
// bursts, so sub-second polling buys nothing.
const DefaultPollInterval = 1750 * time.Millisecond

// Poller periodically fetches the tracked job's snapshot and turns changes
// into events. It is the authoritative source: anything the push stream
// missed is corrected here within one interval. Ticks while no job is
// tracked are no-ops.
type Poller struct {
	Surface  engine.Surface
	Store    *Store
	Sink     Sink
	Interval time.Duration

	lastJobID     string
	lastStatus    engine.Status
	lastLineCount int
	lastQuestions int
}

func (p *Poller) Run(ctx context.Context) error {
	if p.Surface == nil {
		return errors.New("missing Surface")
	}
	if p.Store == nil {
		return errors.New("missing Store")
	}
	if p.Sink == nil {
		return errors.New("missing Sink")
	}
	if p.Interval <= 0 {
		p.Interval = DefaultPollInterval
	}

	t := time.NewTicker(p.Interval)
	defer t.Stop()

	for {
		p.tick(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// Tick runs a single poll round. Exposed so callers that own their own
// scheduling can drive the poller directly.
func (p *Poller) Tick(ctx context.Context) {
	p.tick(ctx)
}

func (p *Poller) tick(ctx context.Context) {
	jobID := p.Store.Get().Job.ID
	if jobID == "" {
		p.resetMemo("")
		return
	}
	if jobID != p.lastJobID {
		p.resetMemo(jobID)
	}

	snap, err := p.Surface.Snapshot(ctx, jobID)
	if err != nil {
		if errors.Is(err, engine.ErrJobNotFound) {
			p.Sink.Handle(JobOrphaned{JobID: jobID})
			return
		}
		log.Warn().Err(err).Str("adoptId", jobID).Msg("adoption snapshot failed")
		return
	}

	p.dispatch(jobID, snap)
}

func (p *Poller) resetMemo(jobID string) {
	p.lastJobID = jobID
	p.lastStatus = ""
	p.lastLineCount = 0
	p.lastQuestions = 0
}

// dispatch emits events for what changed since the previous snapshot, in a
// fixed order: lines, then phase, then the terminal outcome, then questions.
func (p *Poller) dispatch(jobID string, snap engine.Snapshot) {
	if len(snap.Lines) > 0 && len(snap.Lines) != p.lastLineCount {
		p.Sink.Handle(JobLines{JobID: jobID, Lines: snap.Lines})
		p.lastLineCount = len(snap.Lines)
	}

	statusChanged := snap.Status != p.lastStatus
	if statusChanged {
		switch snap.Status {
		case engine.StatusRunning:
			p.Sink.Handle(JobPhase{JobID: jobID, Phase: PhaseRunning})
		case engine.StatusCompleted:
			p.Sink.Handle(JobPhase{JobID: jobID, Phase: PhaseCompleted})
			if snap.Draft != nil {
				p.Sink.Handle(JobDraft{JobID: jobID, Draft: snap.Draft})
			} else {
				p.Sink.Handle(JobCompletedEmpty{JobID: jobID})
			}
		case engine.StatusFailed:
			p.Sink.Handle(JobPhase{JobID: jobID, Phase: PhaseFailed, Err: snap.Err})
			p.Sink.Handle(JobFailed{JobID: jobID, Err: snap.Err})
		}
		p.lastStatus = snap.Status
	}

	if snap.Status == engine.StatusAwaitingAnswers && len(snap.Questions) > 0 && len(snap.Questions) != p.lastQuestions {
		p.Sink.Handle(JobQuestions{JobID: jobID, Questions: snap.Questions})
		p.lastQuestions = len(snap.Questions)
	}
}
