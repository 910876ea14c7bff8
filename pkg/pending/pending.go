package pending

import (
	"encoding/json"
	"time"
)

// DefaultMaxAge bounds how long a persisted pending-job record is trusted
// after the wizard that wrote it went away.
const DefaultMaxAge = 10 * time.Minute

// Context is the durable record of a job in flight, written at launch and
// deleted on terminal resolution. It is what lets a reopened wizard find its
// job again after the front end restarted.
type Context struct {
	JobID        string
	TemplateName string
	Payload      string
	SavedAt      time.Time
}

type contextJSON struct {
	JobID        string `json:"jobId"`
	TemplateName string `json:"templateName"`
	Payload      string `json:"payload"`
	SavedAt      int64  `json:"savedAt"`
}

func (c Context) MarshalJSON() ([]byte, error) {
	return json.Marshal(contextJSON{
		JobID:        c.JobID,
		TemplateName: c.TemplateName,
		Payload:      c.Payload,
		SavedAt:      c.SavedAt.UnixMilli(),
	})
}

func (c *Context) UnmarshalJSON(b []byte) error {
	var raw contextJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	c.JobID = raw.JobID
	c.TemplateName = raw.TemplateName
	c.Payload = raw.Payload
	c.SavedAt = time.UnixMilli(raw.SavedAt)
	return nil
}

// Stale reports whether the record is too old to trust at the given time.
func (c Context) Stale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(c.SavedAt) >= maxAge
}

// Store is the durable home of at most one pending-job record per wizard
// kind. Load returns ok=false when no record exists.
type Store interface {
	Load() (Context, bool, error)
	Save(Context) error
	Clear() error
}
