package wizard

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/personakit/adoptctl/pkg/design"
	"github.com/personakit/adoptctl/pkg/engine"
	"github.com/personakit/adoptctl/pkg/pending"
)

// NewJobID returns a fresh adoption job id. When the UUID source fails it
// falls back to a timestamp plus random hex suffix, which is unique enough
// for correlating a single user's jobs.
func NewJobID() string {
	id, err := uuid.NewRandom()
	if err == nil {
		return id.String()
	}
	var buf [4]byte
	_, _ = rand.Read(buf[:])
	return fmt.Sprintf("adopt-%d-%s", time.Now().UnixMilli(), hex.EncodeToString(buf[:]))
}

// Launcher starts the background generation job. The launch order matters:
// the stream is tracked and the context persisted before the backend call,
// so no early push event and no crash window can lose the job. On failure
// everything rolls back and the error lands in wizard state.
type Launcher struct {
	Surface engine.Surface
	Pending pending.Store
	Stream  *Correlator
	Store   *Store

	NewID func() string
	Clock func() time.Time
}

func (l *Launcher) newID() string {
	if l.NewID != nil {
		return l.NewID()
	}
	return NewJobID()
}

func (l *Launcher) now() time.Time {
	if l.Clock != nil {
		return l.Clock()
	}
	return time.Now()
}

// Start validates the design payload, registers the job locally, persists
// the reattach record, and only then asks the backend to run. A consumed
// adjustment note is cleared on success so the next refinement starts clean.
func (l *Launcher) Start(ctx context.Context) error {
	s := l.Store.Get()

	if s.Template.Result == nil || s.Template.ResultJSON == "" {
		l.Store.SetError(MsgNoDesignData)
		return errors.New(MsgNoDesignData)
	}

	payload, err := l.buildPayload(s)
	if err != nil {
		l.Store.SetError(err.Error())
		return err
	}

	jobID := l.newID()

	l.Stream.Track(jobID)
	l.Store.JobStarted(jobID)

	pc := pending.Context{
		JobID:        jobID,
		TemplateName: s.Template.TemplateName,
		Payload:      payload,
		SavedAt:      l.now(),
	}
	if err := l.Pending.Save(pc); err != nil {
		log.Warn().Err(err).Str("adoptId", jobID).Msg("persist adoption context failed")
	}

	req := engine.StartRequest{
		JobID:          jobID,
		TemplateName:   s.Template.TemplateName,
		Payload:        payload,
		AdjustmentNote: s.AdjustmentNote,
	}
	if s.Draft.Draft != nil && s.Draft.ParseErr == "" {
		req.PreviousDraft = s.Draft.Text
	}
	if len(s.Clarify.Answers) > 0 {
		if js, err := design.EncodeAnswers(s.Clarify.Answers); err == nil {
			req.AnswersJSON = js
		}
	}

	if err := l.Surface.Start(ctx, req); err != nil {
		if cerr := l.Pending.Clear(); cerr != nil {
			log.Warn().Err(cerr).Msg("clear adoption context failed")
		}
		l.Stream.Reset()
		l.Store.JobLaunchFailed(err.Error())
		return err
	}

	l.Store.ConsumeAdjustmentNote()
	log.Info().Str("adoptId", jobID).Str("template", s.Template.TemplateName).Msg("adoption job launched")
	return nil
}

// buildPayload assembles the generator input: trigger config overrides are
// merged by original index, the user's selection is filtered in, and template
// variables are substituted.
func (l *Launcher) buildPayload(s State) (string, error) {
	res := design.MergeTriggerConfigs(*s.Template.Result, s.TriggerConfigs)
	res = design.Filter(res, s.Selection)
	res = design.Substitute(res, s.Variables)
	payload, err := res.MarshalString()
	if err != nil {
		return "", errors.Wrap(err, "serialize design payload")
	}
	return payload, nil
}

// Refresh re-persists the reattach record for an already tracked job and
// re-arms the push correlation. Used when rewiring to a job instead of
// starting a new one.
func (l *Launcher) Refresh(jobID string, s State) {
	l.Stream.Track(jobID)
	pc := pending.Context{
		JobID:        jobID,
		TemplateName: s.Template.TemplateName,
		Payload:      s.Template.ResultJSON,
		SavedAt:      l.now(),
	}
	if err := l.Pending.Save(pc); err != nil {
		log.Warn().Err(err).Str("adoptId", jobID).Msg("refresh adoption context failed")
	}
}
