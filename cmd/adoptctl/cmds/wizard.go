package cmds

import (
	"context"
	stderrors "errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/personakit/adoptctl/pkg/tui"
	"github.com/personakit/adoptctl/pkg/wizard"
)

func newWizardCmd() *cobra.Command {
	var designArg string
	var altScreen bool

	cmd := &cobra.Command{
		Use:   "wizard",
		Short: "Interactive adoption wizard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			env, err := newEnvironment(cmd, ctx, nil)
			if err != nil {
				return err
			}
			defer env.Close()

			entry, err := env.Catalog.Resolve(designArg)
			if err != nil {
				return err
			}
			res, err := entry.ParsedResult()
			if err != nil {
				return err
			}

			w, err := env.newWizard(wizard.TemplateContext{
				TemplateName: entry.TemplateName,
				ReviewID:     entry.ReviewID,
				Result:       res,
				ResultJSON:   string(entry.Result),
			})
			if err != nil {
				return err
			}

			// Reattach to a job a previous session left running.
			if _, err := w.Open(ctx); err != nil {
				return err
			}

			model := tui.NewModel(w)
			programOptions := []tea.ProgramOption{
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			}
			if altScreen {
				programOptions = append(programOptions, tea.WithAltScreen())
			}
			program := tea.NewProgram(model, programOptions...)
			tui.RegisterUIForwarder(env.Bus, program)

			eg, egCtx := errgroup.WithContext(ctx)
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
			eg.Go(func() error {
				_, err := program.Run()
				cancel()
				if stderrors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})

			if err := eg.Wait(); err != nil {
				return errors.Wrap(err, "wizard")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&designArg, "design", "", "Design result: catalog name or path to a JSON file")
	cmd.Flags().BoolVar(&altScreen, "alt-screen", true, "Use the terminal alternate screen buffer")
	_ = cmd.MarkFlagRequired("design")
	return cmd
}
