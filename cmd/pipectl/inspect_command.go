package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"thepipe/internal/datatree"
	"thepipe/internal/treefile"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <tree-file|endpoint>",
		Short: "Summarize a tree file, or the tree waiting on an endpoint",
		Long: `Summarize a tree by node count, depth and payload kinds.

An existing file (or "-" for stdin) is read as a tree file. Anything else is
treated as an endpoint and peeked without taking the data.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			var tree *datatree.Node
			var err error
			if isTreeFile(source) {
				tree, err = treefile.ReadFile(source)
			} else {
				tree, err = peekTree(cmd.Context(), ctx, source)
			}
			if err != nil {
				return err
			}
			if tree == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Nothing waiting on %s\n", source)
				return nil
			}
			writeTreeSummary(cmd.OutOrStdout(), source, tree)
			return nil
		},
	}
}

func isTreeFile(arg string) bool {
	if arg == "-" {
		return true
	}
	info, err := os.Stat(arg)
	return err == nil && !info.IsDir()
}
