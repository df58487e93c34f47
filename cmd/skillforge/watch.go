package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/skillforge/skillforge/pkg/presenter"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the skills root and keep the metadata cache fresh",
	Long: `Watches the skills root for out-of-band changes (an operator editing skill
files directly) and rebuilds the skill metadata cache when they settle. Runs
until interrupted.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		application, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer application.close()

		presenter.Info(fmt.Sprintf("Watching %s", application.store.SkillsRoot()))

		err = application.cache.Watch(ctx, application.store.SkillsRoot())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}
