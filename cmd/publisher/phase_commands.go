package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"publisher/internal/faults"
	"publisher/internal/publish"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Run the validation pass over the publish tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, true, func(ws *workspace) error {
				report, err := ws.manager.Validate(commandCtx(cmd), nil)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, line := range validationLines(report, shouldColorize(out)) {
					fmt.Fprintln(out, line)
				}
				if !report.Passed() {
					return errors.New("validation failed")
				}
				return nil
			})
		},
	}
}

func newPublishCommand(ctx *commandContext) *cobra.Command {
	var keepTree bool

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Validate, publish, and finalize every active task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, true, func(ws *workspace) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				result, err := ws.manager.Run(commandCtx(cmd))
				fmt.Fprintf(out, "Run %s\n", result.ID)
				if result.LogPath != "" {
					fmt.Fprintf(out, "Run log: %s\n", result.LogPath)
				}
				if errors.Is(err, faults.ErrValidation) {
					for _, line := range validationLines(result.Validation, colorize) {
						fmt.Fprintln(out, line)
					}
					return errors.New("publish stopped: validation failed")
				}
				if err != nil {
					var phaseErr *publish.PhaseError
					if errors.As(err, &phaseErr) {
						fmt.Fprintln(out, renderStatusLine(phaseErr.Task, statusError, phaseErr.Err.Error(), colorize))
					}
					return fmt.Errorf("publish stopped: %w", err)
				}
				fmt.Fprintln(out, renderStatusLine("Publish", statusOK,
					fmt.Sprintf("%d tasks published", result.Validation.Tasks), colorize))
				if !keepTree {
					ws.manager.Tree().Clear(true)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&keepTree, "keep", false, "Keep published items in the tree")
	return cmd
}
