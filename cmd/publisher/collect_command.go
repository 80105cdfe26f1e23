package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"publisher/internal/config"
	"publisher/internal/tree"
)

func newCollectCommand(ctx *commandContext) *cobra.Command {
	var fromSession bool
	var description string

	cmd := &cobra.Command{
		Use:   "collect [paths...]",
		Short: "Collect files or the current session into the publish tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !fromSession {
				return errors.New("give at least one path or --session")
			}
			return ctx.withManager(cmd, true, func(ws *workspace) error {
				out := cmd.OutOrStdout()
				var collected []*tree.Item
				if fromSession {
					items, err := ws.manager.CollectSession(commandCtx(cmd))
					if err != nil {
						return err
					}
					collected = append(collected, items...)
				}
				for _, arg := range args {
					path, err := config.ExpandPath(arg)
					if err != nil {
						return fmt.Errorf("resolve path %q: %w", arg, err)
					}
					if abs, err := filepath.Abs(path); err == nil {
						path = abs
					}
					var collectArgs map[string]any
					if description != "" {
						collectArgs = map[string]any{"description": description}
					}
					items, err := ws.manager.CollectFile(commandCtx(cmd), path, collectArgs)
					if err != nil {
						return err
					}
					if len(items) == 0 {
						fmt.Fprintf(out, "Nothing new collected from %s\n", path)
					}
					collected = append(collected, items...)
				}
				for _, item := range collected {
					fmt.Fprintf(out, "Collected %s (%s) with %d tasks\n", item.Name(), item.TypeDisplay(), len(item.Tasks()))
				}
				fmt.Fprintf(out, "Tree holds %d items\n", ws.manager.Tree().Len())
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&fromSession, "session", false, "Rebuild session items through the collector")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description passed to the collector for each path")
	return cmd
}
