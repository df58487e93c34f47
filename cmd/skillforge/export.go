package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/skillforge/skillforge/pkg/presenter"
)

var exportCmd = &cobra.Command{
	Use:   "export <slug>",
	Short: "Export a skill as a zip archive",
	Long:  `Exports a skill's full directory tree as a zip archive with entries rooted at the slug.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		application, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer application.close()

		tmpPath, filename, err := application.store.Export(ctx, args[0])
		if err != nil {
			return err
		}
		defer os.Remove(tmpPath)

		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = filename
		}

		if err := copyFile(tmpPath, output); err != nil {
			return errors.Wrapf(err, "failed to write archive to %s", output)
		}

		presenter.Success(fmt.Sprintf("Exported %s to %s", args[0], output))
		return nil
	},
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "Output path for the archive (default <slug>.zip)")
}
