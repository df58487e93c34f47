package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skillforge/skillforge/pkg/presenter"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <slug>",
	Short: "Delete a skill and its files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		slug := args[0]

		force, _ := cmd.Flags().GetBool("force")
		if !force {
			answer := presenter.Prompt(fmt.Sprintf("Delete skill %q and all its files?", slug), "y", "N")
			if answer != "y" && answer != "Y" {
				presenter.Info("Aborted")
				return nil
			}
		}

		application, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer application.close()

		if err := application.store.Delete(ctx, slug); err != nil {
			return err
		}

		presenter.Success(fmt.Sprintf("Deleted skill %q", slug))
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolP("force", "f", false, "Skip the confirmation prompt")
}
