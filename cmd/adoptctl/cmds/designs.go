package cmds

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/personakit/adoptctl/pkg/catalog"
)

func newDesignsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "designs",
		Short: "Manage the stored design result catalog",
	}
	cmd.AddCommand(newDesignsListCmd())
	cmd.AddCommand(newDesignsAddCmd())
	cmd.AddCommand(newDesignsShowCmd())
	return cmd
}

func newDesignsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored design results",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(cmd, cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer env.Close()

			names, err := env.Catalog.List()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newDesignsAddCmd() *cobra.Command {
	var templateName, reviewID string

	cmd := &cobra.Command{
		Use:   "add <name> <file>",
		Short: "Store a design result JSON file under a catalog name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(cmd, cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer env.Close()

			b, err := os.ReadFile(args[1])
			if err != nil {
				return errors.Wrap(err, "read design file")
			}

			name := args[0]
			tpl := templateName
			if tpl == "" {
				tpl = name
			}
			if err := env.Catalog.Save(name, catalog.Entry{
				TemplateName: tpl,
				ReviewID:     reviewID,
				Result:       json.RawMessage(b),
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored design %q\n", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&templateName, "template-name", "", "Display name of the template (defaults to the catalog name)")
	cmd.Flags().StringVar(&reviewID, "review-id", "", "Review the design result came from")
	return cmd
}

func newDesignsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a stored design result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(cmd, cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer env.Close()

			e, err := env.Catalog.Load(args[0])
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(e, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
}
