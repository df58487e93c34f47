package main

import (
	"github.com/spf13/cobra"

	"github.com/skillforge/skillforge/pkg/presenter"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed skills",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		application, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer application.close()

		options := application.cache.Options()
		if len(options) == 0 {
			presenter.Info("No skills installed")
			return nil
		}

		rows := make([][]string, 0, len(options))
		for _, option := range options {
			rows = append(rows, []string{option.ID, option.Name, option.Description})
		}
		presenter.Table([]string{"SLUG", "NAME", "DESCRIPTION"}, rows)
		return nil
	},
}
