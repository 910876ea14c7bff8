package wizard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/personakit/adoptctl/pkg/bus"
	"github.com/personakit/adoptctl/pkg/design"
	"github.com/personakit/adoptctl/pkg/engine"
	"github.com/personakit/adoptctl/pkg/pending"
)

// Options configures a wizard. Surface and Pending are required; everything
// else has a default.
type Options struct {
	Surface engine.Surface
	Pending pending.Store

	PollInterval  time.Duration
	PendingMaxAge time.Duration
	NewJobID      func() string
	Clock         func() time.Time

	// UIPublisher, when set, receives a state snapshot envelope after every
	// change so a UI can render without reaching into the store.
	UIPublisher message.Publisher
}

// Wizard drives the adoption flow end to end: step navigation, job launch,
// snapshot polling, push correlation, and persona creation.
type Wizard struct {
	store      *Store
	surface    engine.Surface
	pend       pending.Store
	correlator *Correlator
	poller     *Poller
	launcher   *Launcher
	guard      ConfirmGuard

	maxAge time.Duration
	clock  func() time.Time
	uiPub  message.Publisher
}

func New(tpl TemplateContext, opts Options) (*Wizard, error) {
	if opts.Surface == nil {
		return nil, errors.New("missing Surface")
	}
	if opts.Pending == nil {
		return nil, errors.New("missing Pending")
	}

	w := &Wizard{
		store:   NewStore(tpl),
		surface: opts.Surface,
		pend:    opts.Pending,
		maxAge:  opts.PendingMaxAge,
		clock:   opts.Clock,
		uiPub:   opts.UIPublisher,
	}
	if w.maxAge <= 0 {
		w.maxAge = pending.DefaultMaxAge
	}
	if w.clock == nil {
		w.clock = time.Now
	}

	w.correlator = NewCorrelator(w)
	w.poller = &Poller{
		Surface:  opts.Surface,
		Store:    w.store,
		Sink:     w,
		Interval: opts.PollInterval,
	}
	w.launcher = &Launcher{
		Surface: opts.Surface,
		Pending: opts.Pending,
		Stream:  w.correlator,
		Store:   w.store,
		NewID:   opts.NewJobID,
		Clock:   w.clock,
	}
	return w, nil
}

func (w *Wizard) Store() *Store { return w.store }

func (w *Wizard) State() State { return w.store.Get() }

// Attach registers the push correlation handlers on the bus. The caller owns
// the bus lifecycle.
func (w *Wizard) Attach(b *bus.Bus) {
	w.correlator.Register(b)
}

// Run drives the poll loop until the context ends.
func (w *Wizard) Run(ctx context.Context) error {
	return w.poller.Run(ctx)
}

// Tick runs one poll round outside the loop, for callers with their own
// scheduling.
func (w *Wizard) Tick(ctx context.Context) {
	w.poller.Tick(ctx)
}

// Handle is the single entry point for job events from both sources. It
// folds the event into state and runs whatever effects fall out.
func (w *Wizard) Handle(ev Event) {
	effects := w.store.Apply(ev)
	for _, eff := range effects {
		switch eff := eff.(type) {
		case ClearPendingEffect:
			if err := w.pend.Clear(); err != nil {
				log.Warn().Err(err).Msg("clear adoption context failed")
			}
		case ReleaseJobEffect:
			if err := w.surface.ClearSnapshot(context.Background(), eff.JobID); err != nil {
				log.Debug().Err(err).Str("adoptId", eff.JobID).Msg("release adoption snapshot failed")
			}
			w.correlator.Reset()
		}
	}
	w.notifyEvent(ev)
}

// Open reattaches to a job persisted by an earlier session. A record that is
// absent, stale, unreadable, or whose job id the backend no longer resolves
// is discarded without surfacing anything; the wizard simply starts fresh.
// It reports whether a reattach happened.
func (w *Wizard) Open(ctx context.Context) (bool, error) {
	pc, ok, err := w.pend.Load()
	if err != nil {
		log.Debug().Err(err).Msg("pending adoption record unreadable")
		_ = w.pend.Clear()
		return false, nil
	}
	if !ok {
		return false, nil
	}
	if pc.Stale(w.clock(), w.maxAge) {
		log.Debug().Str("adoptId", pc.JobID).Msg("pending adoption record stale")
		_ = w.pend.Clear()
		return false, nil
	}
	if _, err := w.surface.Snapshot(ctx, pc.JobID); err != nil {
		log.Debug().Err(err).Str("adoptId", pc.JobID).Msg("pending adoption job not resolvable")
		_ = w.pend.Clear()
		return false, nil
	}

	w.correlator.Track(pc.JobID)
	w.store.RestoreJob(pc.JobID)

	pc.SavedAt = w.clock()
	if err := w.pend.Save(pc); err != nil {
		log.Warn().Err(err).Msg("refresh adoption context failed")
	}

	log.Info().Str("adoptId", pc.JobID).Str("template", pc.TemplateName).Msg("reattached to adoption job")
	w.notify()
	return true, nil
}

// Next advances the wizard according to the step policy.
func (w *Wizard) Next(ctx context.Context) error {
	s := w.store.Get()
	d := Decide(s.Step, s)

	switch d.Action {
	case ActionNavigate:
		w.store.SetStep(d.Target)
		w.notify()
		return nil
	case ActionStartJob:
		if err := w.launcher.Start(ctx); err != nil {
			w.notify()
			return err
		}
		w.store.SetStep(StepBuild)
		w.notify()
		return nil
	case ActionResumeJob:
		w.launcher.Refresh(s.Job.ID, s)
		w.store.SetStep(StepBuild)
		w.notify()
		return nil
	case ActionFinalize:
		return w.Confirm(ctx)
	default:
		return nil
	}
}

// Back moves to the previous step where one exists.
func (w *Wizard) Back() {
	s := w.store.Get()
	if target, ok := DecideBack(s.Step, s); ok {
		w.store.SetStep(target)
		w.notify()
	}
}

// SubmitAnswers sends the collected clarification answers back to the
// generator and resumes watching the build step.
func (w *Wizard) SubmitAnswers(ctx context.Context) error {
	s := w.store.Get()
	if s.Job.ID == "" {
		return errors.New("no adoption job to answer")
	}
	if len(s.Clarify.Questions) == 0 {
		return errors.New("no clarification questions to answer")
	}
	if len(s.Clarify.Answers) == 0 {
		return errors.New("no answers provided")
	}

	answersJSON, err := design.EncodeAnswers(s.Clarify.Answers)
	if err != nil {
		return errors.Wrap(err, "encode answers")
	}
	if err := w.surface.Continue(ctx, s.Job.ID, answersJSON); err != nil {
		w.store.SetError(err.Error())
		w.notify()
		return err
	}

	w.store.AnswersSubmitted()
	w.notify()
	return nil
}

// Cancel stops the tracked job. The backend call is best effort; the local
// record is forgotten either way so the user can start over.
func (w *Wizard) Cancel(ctx context.Context) error {
	s := w.store.Get()
	if s.Job.ID == "" {
		return nil
	}

	if err := w.surface.Cancel(ctx, s.Job.ID); err != nil {
		log.Warn().Err(err).Str("adoptId", s.Job.ID).Msg("cancel adoption job failed")
	}
	if err := w.pend.Clear(); err != nil {
		log.Warn().Err(err).Msg("clear adoption context failed")
	}
	if err := w.surface.ClearSnapshot(ctx, s.Job.ID); err != nil {
		log.Debug().Err(err).Str("adoptId", s.Job.ID).Msg("release adoption snapshot failed")
	}
	w.correlator.Reset()
	w.store.JobCancelled()
	w.notify()
	return nil
}

// Confirm turns the draft into a persona. Local validation failures never
// reach the backend; once creation succeeds the wizard refuses to create
// again.
func (w *Wizard) Confirm(ctx context.Context) error {
	if !w.guard.TryAcquire() {
		return nil
	}
	defer w.guard.Release()

	s := w.store.Get()
	if s.Finalize.Created {
		return nil
	}
	if s.Draft.Text == "" {
		w.store.SetError("No persona draft to confirm.")
		w.notify()
		return errors.New("no persona draft to confirm")
	}

	w.store.FinalizeStarted()
	w.notify()

	draft, err := design.ParseDraft(s.Draft.Text)
	if err != nil {
		werr := errors.Wrap(err, "persona draft is not valid JSON")
		w.store.FinalizeFailed(werr.Error())
		w.notify()
		return werr
	}
	draft.Normalize(s.Template.TemplateName)
	if err := draft.Validate(); err != nil {
		werr := errors.Wrap(err, "persona draft failed validation")
		w.store.FinalizeFailed(werr.Error())
		w.notify()
		return werr
	}

	payload, err := json.Marshal(draft)
	if err != nil {
		werr := errors.Wrap(err, "serialize persona draft")
		w.store.FinalizeFailed(werr.Error())
		w.notify()
		return werr
	}

	res, err := w.surface.CreatePersona(ctx, engine.CreateRequest{
		DraftJSON:    string(payload),
		TemplateName: s.Template.TemplateName,
	})
	if err != nil {
		w.store.FinalizeFailed(err.Error())
		w.notify()
		return err
	}

	w.store.FinalizeSucceeded(res)
	if err := w.pend.Clear(); err != nil {
		log.Warn().Err(err).Msg("clear adoption context failed")
	}
	w.correlator.Reset()

	for _, ee := range res.EntityErrors {
		log.Warn().Str("entity", ee.EntityType).Str("name", ee.EntityName).Str("error", ee.Err).Msg("persona entity skipped")
	}
	log.Info().Str("personaId", res.PersonaID).Int("triggers", res.TriggersCreated).Int("tools", res.ToolsCreated).Msg("persona created")

	w.notify()
	return nil
}
