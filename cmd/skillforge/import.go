package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/skillforge/skillforge/pkg/presenter"
)

var importCmd = &cobra.Command{
	Use:   "import <archive.zip>",
	Short: "Import a skill from a zip archive",
	Long: `Imports a skill bundle from a zip archive. The archive must contain exactly
one SKILL.md manifest; the directory containing it becomes the skill root.
If the manifest's name is already taken, a versioned slug (name-v2, name-v3,
...) is allocated and the manifest is rewritten to match.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		zipBytes, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrapf(err, "failed to read archive %s", args[0])
		}

		application, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer application.close()

		actor, _ := cmd.Flags().GetString("actor")
		item, err := application.store.Import(ctx, zipBytes, actor)
		if err != nil {
			return err
		}

		presenter.Success(fmt.Sprintf("Imported skill %q", item.Slug))
		presenter.Info(fmt.Sprintf("Description: %s", item.Description))
		return nil
	},
}

func init() {
	importCmd.Flags().String("actor", "cli", "Actor recorded on the skill record")
}
