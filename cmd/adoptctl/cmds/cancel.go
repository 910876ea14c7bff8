package cmds

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newCancelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the pending adoption job and forget it locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(cmd, cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer env.Close()

			pc, ok, err := env.Pending.Load()
			if err != nil || !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "no pending adoption job")
				return nil
			}

			// Best effort; the local record is cleared regardless.
			if err := env.Surface.Cancel(cmd.Context(), pc.JobID); err != nil {
				log.Debug().Err(err).Str("adoptId", pc.JobID).Msg("backend cancel failed")
			}
			if err := env.Pending.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cancelled adoption job %s\n", pc.JobID)
			return nil
		},
	}
	return cmd
}
