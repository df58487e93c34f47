package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skillforge/skillforge/pkg/presenter"
	"github.com/skillforge/skillforge/pkg/store"
)

var treeCmd = &cobra.Command{
	Use:   "tree <slug>",
	Short: "Show a skill's file tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		application, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer application.close()

		nodes, err := application.store.Tree(ctx, args[0])
		if err != nil {
			return err
		}

		presenter.Section(args[0])
		printTree(nodes, 0)
		return nil
	},
}

func printTree(nodes []store.TreeNode, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, node := range nodes {
		name := node.Name
		if node.IsDir {
			name += "/"
		}
		presenter.Info(fmt.Sprintf("%s%s", indent, name))
		if node.IsDir {
			printTree(node.Children, depth+1)
		}
	}
}
