package cmds

import (
	"github.com/spf13/cobra"
)

func AddCommands(root *cobra.Command) error {
	root.AddCommand(newAdoptCmd())
	root.AddCommand(newResumeCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newCancelCmd())
	root.AddCommand(newDesignsCmd())
	root.AddCommand(newWizardCmd())
	root.AddCommand(newSmoketestCmd())
	return nil
}
