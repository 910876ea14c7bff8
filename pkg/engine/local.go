package engine

import (
	"context"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/personakit/adoptctl/pkg/bus"
	"github.com/personakit/adoptctl/pkg/design"
)

// CancelledByUser is the failure text a cancelled job reports.
const CancelledByUser = "Cancelled by user"

type LocalOptions struct {
	Generator Generator
	Personas  PersonaCreator
	// Publisher receives push events on the job output/status topics. Nil
	// disables push; polling still sees everything.
	Publisher message.Publisher
	// LineFilter overrides the built-in output surfacing rules.
	LineFilter LineFilter
}

// Local is the in-process execution surface. Jobs run as goroutines bound to
// the context given at construction, so they outlive the command call that
// started them but not the process.
type Local struct {
	baseCtx  context.Context
	reg      *registry
	gen      Generator
	personas PersonaCreator
	pub      message.Publisher
	filter   LineFilter
}

var _ Surface = (*Local)(nil)

func NewLocal(baseCtx context.Context, opts LocalOptions) *Local {
	filter := opts.LineFilter
	if filter == nil {
		filter = defaultLineFilter{}
	}
	return &Local{
		baseCtx:  baseCtx,
		reg:      newRegistry(),
		gen:      opts.Generator,
		personas: opts.Personas,
		pub:      opts.Publisher,
		filter:   filter,
	}
}

func (l *Local) Start(ctx context.Context, req StartRequest) error {
	if strings.TrimSpace(req.Payload) == "" {
		return errors.New("design result payload cannot be empty")
	}
	if req.JobID == "" {
		return errors.New("job id cannot be empty")
	}
	if l.gen == nil {
		return errors.New("no generator configured")
	}
	if l.reg.running(req.JobID) {
		return errors.Errorf("adoption job %s is already running", req.JobID)
	}

	runCtx, cancel := context.WithCancel(l.baseCtx)
	l.reg.create(req.JobID, req.TemplateName, cancel)
	l.emitStatus(req.JobID, StatusRunning, "")
	log.Info().Str("adopt_id", req.JobID).Str("template", req.TemplateName).Msg("adoption job started")

	go func() {
		defer cancel()
		l.run(runCtx, req.JobID, req.TemplateName, GenerateRequest{Prompt: buildAdoptPrompt(req)})
	}()
	return nil
}

func (l *Local) Continue(ctx context.Context, jobID, answersJSON string) error {
	status, ok := l.reg.status(jobID)
	if !ok {
		return errors.Wrapf(ErrJobNotFound, "continue %s", jobID)
	}
	if status != StatusAwaitingAnswers {
		return errors.Errorf("adoption job %s is not awaiting answers", jobID)
	}
	session, ok := l.reg.session(jobID)
	if !ok {
		return errors.Errorf("no generator session recorded for adoption job %s", jobID)
	}

	runCtx, cancel := context.WithCancel(l.baseCtx)
	templateName, ok := l.reg.resume(jobID, cancel)
	if !ok {
		cancel()
		return errors.Wrapf(ErrJobNotFound, "continue %s", jobID)
	}
	l.emitStatus(jobID, StatusRunning, "")
	log.Info().Str("adopt_id", jobID).Msg("adoption job resumed with answers")

	go func() {
		defer cancel()
		l.run(runCtx, jobID, templateName, GenerateRequest{
			Prompt:    buildContinuePrompt(answersJSON),
			SessionID: session,
		})
	}()
	return nil
}

func (l *Local) run(ctx context.Context, jobID, templateName string, req GenerateRequest) {
	res, err := l.gen.Generate(ctx, req, func(line string) {
		l.emitLine(jobID, line)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Cancel already reported the terminal status.
			return
		}
		log.Error().Str("adopt_id", jobID).Err(err).Msg("adoption job failed")
		l.emitStatus(jobID, StatusFailed, err.Error())
		return
	}
	l.reg.setSession(jobID, res.SessionID)
	l.finish(jobID, templateName, res.Output)
}

func (l *Local) finish(jobID, templateName, output string) {
	if qs, ok := design.ExtractQuestions(output); ok && len(qs) > 0 {
		l.reg.setQuestions(jobID, qs)
		l.emitStatus(jobID, StatusAwaitingAnswers, "")
		log.Info().Str("adopt_id", jobID).Int("questions", len(qs)).Msg("adoption job awaiting answers")
		return
	}
	draft, err := design.ParseDraft(output)
	if err != nil {
		l.emitStatus(jobID, StatusFailed, "generator returned no valid persona JSON")
		return
	}
	fallback := templateName
	if fallback == "" {
		fallback = "Imported Persona"
	}
	draft.Normalize(fallback)
	l.reg.setDraft(jobID, draft)
	l.emitStatus(jobID, StatusCompleted, "")
	log.Info().Str("adopt_id", jobID).Msg("adoption job completed")
}

func (l *Local) Cancel(ctx context.Context, jobID string) error {
	cancel, ok := l.reg.cancelFunc(jobID)
	if !ok {
		return errors.Wrapf(ErrJobNotFound, "cancel %s", jobID)
	}
	cancel()
	l.emitStatus(jobID, StatusFailed, CancelledByUser)
	log.Info().Str("adopt_id", jobID).Msg("adoption job cancelled")
	return nil
}

func (l *Local) Snapshot(ctx context.Context, jobID string) (Snapshot, error) {
	snap, ok := l.reg.snapshot(jobID)
	if !ok {
		return Snapshot{}, errors.Wrapf(ErrJobNotFound, "snapshot %s", jobID)
	}
	return snap, nil
}

func (l *Local) ClearSnapshot(ctx context.Context, jobID string) error {
	l.reg.remove(jobID)
	return nil
}

func (l *Local) CreatePersona(ctx context.Context, req CreateRequest) (CreateResult, error) {
	if l.personas == nil {
		return CreateResult{}, errors.New("no persona store configured")
	}
	draft, err := design.ParseDraft(req.DraftJSON)
	if err != nil {
		return CreateResult{}, errors.Wrap(err, "invalid draft payload")
	}
	fallback := req.TemplateName
	if fallback == "" {
		fallback = "Imported Persona"
	}
	draft.Normalize(fallback)
	if err := draft.Validate(); err != nil {
		return CreateResult{}, err
	}
	return l.personas.Create(ctx, draft)
}

func (l *Local) emitStatus(jobID string, status Status, errText string) {
	l.reg.setStatus(jobID, status, errText)
	if l.pub == nil {
		return
	}
	ev := bus.JobStatusEvent{AdoptID: jobID, Status: string(status), Err: errText}
	if err := bus.Publish(l.pub, bus.TopicJobStatus, bus.TypeJobStatus, ev); err != nil {
		log.Warn().Err(err).Str("adopt_id", jobID).Msg("publish job status")
	}
}

func (l *Local) emitLine(jobID, line string) {
	surfaced, ok := l.filter.Surface(line)
	if !ok {
		return
	}
	l.reg.appendLine(jobID, surfaced)
	if l.pub == nil {
		return
	}
	ev := bus.JobOutputEvent{AdoptID: jobID, Line: surfaced}
	if err := bus.Publish(l.pub, bus.TopicJobOutput, bus.TypeJobOutput, ev); err != nil {
		log.Warn().Err(err).Str("adopt_id", jobID).Msg("publish job output")
	}
}
