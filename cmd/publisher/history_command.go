package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool
	var files bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent publish runs or published files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, false, func(ws *workspace) error {
				out := cmd.OutOrStdout()
				if files {
					published, err := ws.store.PublishedFiles(commandCtx(cmd), ws.cfg.Session.Project, limit)
					if err != nil {
						return err
					}
					if jsonOutput {
						return writeJSON(cmd, published)
					}
					if len(published) == 0 {
						fmt.Fprintln(out, "No published files")
						return nil
					}
					rows := make([][]string, 0, len(published))
					for _, f := range published {
						rows = append(rows, []string{
							strconv.FormatInt(f.ID, 10),
							f.Name,
							strconv.Itoa(f.VersionNumber),
							f.FileType,
							f.Path,
							humanize.Time(f.CreatedAt),
						})
					}
					fmt.Fprintln(out, renderTable(
						[]string{"ID", "Name", "Version", "Type", "Path", "Published"},
						rows,
						[]columnAlignment{alignRight, alignLeft, alignRight},
					))
					return nil
				}

				runs, err := ws.store.Runs(commandCtx(cmd), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, runs)
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, "No publish runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						run.ID,
						string(run.Status),
						run.Context,
						strconv.Itoa(run.Tasks),
						strconv.Itoa(run.Failures),
						run.Phase,
						humanize.Time(run.StartedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Run", "Status", "Context", "Tasks", "Failures", "Stopped In", "Started"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")
	cmd.Flags().BoolVar(&files, "files", false, "List published files instead of runs")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
