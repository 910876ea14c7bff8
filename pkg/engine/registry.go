package engine

import (
	"context"
	"sync"

	"github.com/personakit/adoptctl/pkg/design"
)

// maxStoredLines caps how much surfaced output a job keeps. Push events keep
// flowing past the cap; only the snapshot buffer stops growing.
const maxStoredLines = 500

type jobEntry struct {
	templateName string
	status       Status
	errText      string
	lines        []string
	draft        *design.Draft
	questions    []design.Question
	sessionID    string
	cancel       context.CancelFunc
}

// registry is the in-memory home of running and finished jobs. Everything is
// guarded by one mutex; entries live until ClearSnapshot removes them.
type registry struct {
	mu   sync.Mutex
	jobs map[string]*jobEntry
}

func newRegistry() *registry {
	return &registry{jobs: map[string]*jobEntry{}}
}

func (r *registry) create(jobID, templateName string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[jobID] = &jobEntry{templateName: templateName, status: StatusRunning, cancel: cancel}
}

// resume swaps in a fresh cancel func for a continued job, keeping its
// accumulated lines, session and template name.
func (r *registry) resume(jobID string, cancel context.CancelFunc) (templateName string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[jobID]
	if !ok {
		return "", false
	}
	e.cancel = cancel
	return e.templateName, true
}

func (r *registry) running(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[jobID]
	return ok && (e.status == StatusRunning || e.status == StatusAwaitingAnswers)
}

func (r *registry) setStatus(jobID string, status Status, errText string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[jobID]
	if !ok {
		return
	}
	e.status = status
	e.errText = errText
}

func (r *registry) appendLine(jobID, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[jobID]
	if !ok {
		return
	}
	if len(e.lines) < maxStoredLines {
		e.lines = append(e.lines, line)
	}
}

func (r *registry) setDraft(jobID string, draft *design.Draft) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.jobs[jobID]; ok {
		e.draft = draft
	}
}

func (r *registry) setQuestions(jobID string, qs []design.Question) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.jobs[jobID]; ok {
		e.questions = qs
	}
}

func (r *registry) setSession(jobID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.jobs[jobID]; ok && sessionID != "" {
		e.sessionID = sessionID
	}
}

func (r *registry) session(jobID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[jobID]
	if !ok || e.sessionID == "" {
		return "", false
	}
	return e.sessionID, true
}

func (r *registry) status(jobID string) (Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[jobID]
	if !ok {
		return StatusIdle, false
	}
	return e.status, true
}

// snapshot copies a job's state out of the registry. ok=false when the id is
// unknown.
func (r *registry) snapshot(jobID string) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[jobID]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		JobID:     jobID,
		Status:    e.status,
		Lines:     append([]string(nil), e.lines...),
		Draft:     e.draft,
		Err:       e.errText,
		Questions: append([]design.Question(nil), e.questions...),
	}, true
}

func (r *registry) cancelFunc(jobID string) (context.CancelFunc, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[jobID]
	if !ok || e.cancel == nil {
		return nil, false
	}
	return e.cancel, true
}

func (r *registry) remove(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.jobs[jobID]; ok && e.cancel != nil {
		e.cancel()
	}
	delete(r.jobs, jobID)
}
