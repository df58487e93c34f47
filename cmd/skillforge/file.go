package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/skillforge/skillforge/pkg/presenter"
)

var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Read and edit files inside a skill",
}

var fileCatCmd = &cobra.Command{
	Use:   "cat <slug> <path>",
	Short: "Print a file from a skill",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		application, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer application.close()

		_, content, err := application.store.ReadFile(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), content)
		return nil
	},
}

var fileWriteCmd = &cobra.Command{
	Use:   "write <slug> <path>",
	Short: "Overwrite a file in a skill with stdin",
	Long: `Overwrites an existing file with content read from stdin. Writing SKILL.md
re-parses the manifest and syncs the stored metadata; a manifest whose name
does not match the slug is rejected.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return errors.Wrap(err, "failed to read stdin")
		}

		application, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer application.close()

		actor, _ := cmd.Flags().GetString("actor")
		if err := application.store.WriteFile(ctx, args[0], args[1], string(content), actor); err != nil {
			return err
		}

		presenter.Success(fmt.Sprintf("Wrote %s/%s", args[0], args[1]))
		return nil
	},
}

var fileNewCmd = &cobra.Command{
	Use:   "new <slug> <path>",
	Short: "Create a file or directory in a skill",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		application, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer application.close()

		isDir, _ := cmd.Flags().GetBool("dir")
		content := ""
		if !isDir {
			stat, err := os.Stdin.Stat()
			if err == nil && stat.Mode()&os.ModeCharDevice == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return errors.Wrap(err, "failed to read stdin")
				}
				content = string(data)
			}
		}

		actor, _ := cmd.Flags().GetString("actor")
		if err := application.store.CreateNode(ctx, args[0], args[1], isDir, content, actor); err != nil {
			return err
		}

		presenter.Success(fmt.Sprintf("Created %s/%s", args[0], args[1]))
		return nil
	},
}

var fileRmCmd = &cobra.Command{
	Use:   "rm <slug> <path>",
	Short: "Delete a file or directory from a skill",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		application, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer application.close()

		if err := application.store.DeleteNode(ctx, args[0], args[1]); err != nil {
			return err
		}

		presenter.Success(fmt.Sprintf("Deleted %s/%s", args[0], args[1]))
		return nil
	},
}

func init() {
	fileWriteCmd.Flags().String("actor", "cli", "Actor recorded on metadata updates")
	fileNewCmd.Flags().Bool("dir", false, "Create a directory instead of a file")
	fileNewCmd.Flags().String("actor", "cli", "Actor recorded on metadata updates")

	fileCmd.AddCommand(fileCatCmd)
	fileCmd.AddCommand(fileWriteCmd)
	fileCmd.AddCommand(fileNewCmd)
	fileCmd.AddCommand(fileRmCmd)
}
