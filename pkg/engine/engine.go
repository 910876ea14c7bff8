package engine

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/personakit/adoptctl/pkg/design"
)

// Status is the backend-side lifecycle of an adoption job.
type Status string

const (
	StatusIdle            Status = "idle"
	StatusRunning         Status = "running"
	StatusAwaitingAnswers Status = "awaiting_answers"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ErrJobNotFound means the surface has no record of the job id, typically
// because the backend restarted and lost its in-memory registry.
var ErrJobNotFound = errors.New("adoption job not found")

// Snapshot is the polled point-in-time view of one job.
type Snapshot struct {
	JobID     string            `json:"adopt_id"`
	Status    Status            `json:"status"`
	Lines     []string          `json:"lines,omitempty"`
	Draft     *design.Draft     `json:"draft,omitempty"`
	Err       string            `json:"error,omitempty"`
	Questions []design.Question `json:"questions,omitempty"`
}

// StartRequest carries everything a job needs: the client-generated id, the
// template being adopted, and the filtered, substituted design payload.
type StartRequest struct {
	JobID          string
	TemplateName   string
	Payload        string
	AdjustmentNote string
	PreviousDraft  string
	AnswersJSON    string
}

type CreateRequest struct {
	DraftJSON    string
	TemplateName string
}

type EntityError struct {
	EntityType string `json:"entity_type"`
	EntityName string `json:"entity_name"`
	Err        string `json:"error"`
}

func (e EntityError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.EntityType, e.EntityName, e.Err)
}

type CreateResult struct {
	PersonaID              string        `json:"persona_id"`
	TriggersCreated        int           `json:"triggers_created"`
	ToolsCreated           int           `json:"tools_created"`
	ConnectorsNeedingSetup []string      `json:"connectors_needing_setup,omitempty"`
	EntityErrors           []EntityError `json:"entity_errors,omitempty"`
}

// Surface is the command contract the wizard orchestration consumes. Job
// execution is asynchronous: Start returns once the job is registered and
// all later outcomes surface through Snapshot and the push topics.
type Surface interface {
	Start(ctx context.Context, req StartRequest) error
	Continue(ctx context.Context, jobID, answersJSON string) error
	Cancel(ctx context.Context, jobID string) error
	Snapshot(ctx context.Context, jobID string) (Snapshot, error)
	ClearSnapshot(ctx context.Context, jobID string) error
	CreatePersona(ctx context.Context, req CreateRequest) (CreateResult, error)
}

// PersonaCreator persists a finalized draft. Implemented by personastore.
type PersonaCreator interface {
	Create(ctx context.Context, draft *design.Draft) (CreateResult, error)
}
