package cmds

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/personakit/adoptctl/pkg/engine"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the pending adoption job and, when resolvable, its snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(cmd, cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer env.Close()

			type status struct {
				Pending    bool             `json:"pending"`
				JobID      string           `json:"job_id,omitempty"`
				Template   string           `json:"template,omitempty"`
				SavedAt    *time.Time       `json:"saved_at,omitempty"`
				Stale      bool             `json:"stale,omitempty"`
				Resolvable bool             `json:"resolvable"`
				Snapshot   *engine.Snapshot `json:"snapshot,omitempty"`
			}

			var st status
			pc, ok, err := env.Pending.Load()
			if err != nil {
				return errors.Wrap(err, "read pending adoption record")
			}
			if ok {
				st.Pending = true
				st.JobID = pc.JobID
				st.Template = pc.TemplateName
				st.SavedAt = &pc.SavedAt
				st.Stale = pc.Stale(time.Now(), env.MaxAge)

				if snap, err := env.Surface.Snapshot(cmd.Context(), pc.JobID); err == nil {
					st.Resolvable = true
					st.Snapshot = &snap
				}
			}

			b, err := json.MarshalIndent(st, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
	return cmd
}
