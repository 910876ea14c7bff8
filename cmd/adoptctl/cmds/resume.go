package cmds

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/personakit/adoptctl/pkg/wizard"
)

func newResumeCmd() *cobra.Command {
	var confirm bool
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Reattach to a pending adoption job and watch it to the end",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			env, err := newEnvironment(cmd, ctx, nil)
			if err != nil {
				return err
			}
			defer env.Close()

			pc, ok, err := env.Pending.Load()
			if err != nil || !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "no pending adoption job")
				return nil
			}

			tpl, err := wizard.FromPending(pc)
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "pending adoption record is unreadable; starting over is required")
				_ = env.Pending.Clear()
				return nil
			}

			w, err := env.newWizard(tpl)
			if err != nil {
				return err
			}

			attached, err := w.Open(ctx)
			if err != nil {
				return err
			}
			if !attached {
				fmt.Fprintln(cmd.OutOrStdout(), "the pending adoption job could not be reattached; the backend may have restarted")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reattached to adoption job %s (template %q)\n", pc.JobID, pc.TemplateName)

			printJobOutput(env.Bus, cmd)

			runCtx, stop := context.WithCancel(ctx)
			defer stop()

			eg, egCtx := errgroup.WithContext(runCtx)
			eg.Go(func() error {
				err := env.Bus.Run(egCtx)
				if stderrors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
			eg.Go(func() error {
				err := w.Run(egCtx)
				if stderrors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})

			runErr := watchGeneration(egCtx, w, adoptFlags{noConfirm: !confirm, wait: wait})

			stop()
			if err := eg.Wait(); runErr == nil && err != nil {
				runErr = err
			}
			if runErr != nil {
				return runErr
			}
			return printOutcome(cmd, w.State(), !confirm)
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "Create the persona once the draft is ready")
	cmd.Flags().DurationVar(&wait, "wait", 15*time.Minute, "How long to wait for generation")
	return cmd
}
