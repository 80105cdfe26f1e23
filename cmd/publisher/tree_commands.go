package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTreeCommand(ctx *commandContext) *cobra.Command {
	treeCmd := &cobra.Command{
		Use:   "tree",
		Short: "Inspect and edit the saved publish tree",
	}

	treeCmd.AddCommand(newTreeShowCommand(ctx))
	treeCmd.AddCommand(newTreeQueryCommand(ctx))
	treeCmd.AddCommand(newTreeClearCommand(ctx))
	return treeCmd
}

func newTreeShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the publish tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, false, func(ws *workspace) error {
				t := ws.manager.Tree()
				if jsonOutput {
					return t.Encode(cmd.OutOrStdout())
				}
				if t.Len() == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Publish tree is empty")
					return nil
				}
				t.Pprint(cmd.OutOrStdout())
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the serialized tree document")
	return cmd
}

func newTreeQueryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "query <jsonpath>",
		Short: "Evaluate a JSONPath expression against the tree document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, false, func(ws *workspace) error {
				results, err := ws.manager.Query(args[0])
				if err != nil {
					return err
				}
				if results == nil {
					results = []any{}
				}
				return writeJSON(cmd, results)
			})
		},
	}
}

func newTreeClearCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove session items from the tree",
		Long:  "Remove session items from the tree. Collected files are persistent and stay unless --all is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, true, func(ws *workspace) error {
				t := ws.manager.Tree()
				before := t.Len()
				t.Clear(all)
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d items, %d remain\n", before-t.Len(), t.Len())
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Also remove persistent items")
	return cmd
}
