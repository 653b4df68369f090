package main

import (
	"github.com/spf13/cobra"

	"github.com/ripixel/fitglue-media/pkg/domain/exercise"
)

func newRootCommandWithContext(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "media-match",
		Short:         "Match exercise GIFs to the catalog and upload them",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.configPath, "config", "c", "", "TOML configuration overlay")
	flags.StringVar(&ctx.catalogPath, "catalog", "", "Offline JSON catalog for match, search and catalog")
	flags.StringVarP(&ctx.group, "group", "g", exercise.GroupAll, "Muscle group tab")
	flags.StringVar(&ctx.logLevel, "log-level", "warn", "Log level written to stderr")

	rootCmd.AddCommand(newMatchCommand(ctx))
	rootCmd.AddCommand(newSearchCommand(ctx))
	rootCmd.AddCommand(newUploadCommand(ctx))
	rootCmd.AddCommand(newCatalogCommand(ctx))

	return rootCmd
}
