package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type pluginView struct {
	Name        string         `json:"name"`
	DisplayName string         `json:"display_name"`
	Hook        string         `json:"hook"`
	ItemFilters []string       `json:"item_filters"`
	Description string         `json:"description"`
	Settings    map[string]any `json:"settings"`
}

func newPluginsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List the publish plugins configured for the session context",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, false, func(ws *workspace) error {
				plugins, err := ws.manager.Plugins(commandCtx(cmd))
				if err != nil {
					return err
				}
				views := make([]pluginView, 0, len(plugins))
				for _, p := range plugins {
					views = append(views, pluginView{
						Name:        p.Name(),
						DisplayName: p.DisplayName(),
						Hook:        p.Path(),
						ItemFilters: p.ItemFilters(),
						Description: p.Description(),
						Settings:    p.Settings().Values(),
					})
				}
				if jsonOutput {
					return writeJSON(cmd, views)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Context: %s\n", ws.manager.Session().Context)
				if len(views) == 0 {
					fmt.Fprintln(out, "No publish plugins configured")
					return nil
				}
				rows := make([][]string, 0, len(views))
				for _, v := range views {
					rows = append(rows, []string{v.Name, v.Hook, strings.Join(v.ItemFilters, ", "), v.Description})
				}
				fmt.Fprintln(out, renderTable([]string{"Name", "Hook", "Item Filters", "Description"}, rows, nil))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output plugin details as JSON")
	return cmd
}
