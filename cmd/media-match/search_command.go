package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ripixel/fitglue-media/pkg/domain/exercise"
	matcher "github.com/ripixel/fitglue-media/pkg/exercise_matcher"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "List the entries the manual picker would offer",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := ctx.loadCatalog(cmd.Context())
			if err != nil {
				return err
			}
			results := matcher.Search(strings.Join(args, " "), ctx.group, catalog)
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No exercises found")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderEntries(results))
			return nil
		},
	}
}

func renderEntries(entries []exercise.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		media := e.MediaURL
		if media == "" {
			media = "-"
		}
		rows = append(rows, []string{e.ID, e.Name, e.MuscleGroup, media})
	}
	return renderTable([]string{"ID", "Exercise", "Group", "Media"}, rows, nil)
}
