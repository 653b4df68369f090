package main

import (
	"fmt"

	"github.com/spf13/cobra"

	matcher "github.com/ripixel/fitglue-media/pkg/exercise_matcher"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	var missingOnly bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Show the catalog snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := ctx.loadCatalog(cmd.Context())
			if err != nil {
				return err
			}

			withMedia := 0
			shown := catalog[:0:0]
			for _, e := range catalog {
				if e.MediaURL != "" {
					withMedia++
				}
				if !matcher.MatchesGroup(e.MuscleGroup, ctx.group) {
					continue
				}
				if missingOnly && e.MediaURL != "" {
					continue
				}
				shown = append(shown, e)
			}

			out := cmd.OutOrStdout()
			if len(shown) > 0 {
				fmt.Fprintln(out, renderEntries(shown))
			}
			fmt.Fprintf(out, "%d entries, %d with media, %d shown\n", len(catalog), withMedia, len(shown))
			return nil
		},
	}
	cmd.Flags().BoolVar(&missingOnly, "missing", false, "Only show entries without media")
	return cmd
}
