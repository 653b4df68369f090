package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	matcher "github.com/ripixel/fitglue-media/pkg/exercise_matcher"
)

func newMatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "match <file>...",
		Short: "Suggest a catalog entry for each file name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := ctx.loadCatalog(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(args))
			for _, arg := range args {
				name := filepath.Base(arg)
				m, ok := matcher.BestMatch(name, catalog)
				if !ok {
					rows = append(rows, []string{name, "-", "-", "-"})
					continue
				}
				rows = append(rows, []string{name, m.Entry.ID, m.Entry.Name, formatScore(m.Score)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"File", "ID", "Exercise", "Score"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}
