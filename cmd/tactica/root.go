package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var logModeFlag string

	ctx := newCommandContext(&configFlag, &logModeFlag)

	rootCmd := &cobra.Command{
		Use:           "tactica",
		Short:         "Extract tactical drills from soccer coaching PDFs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (default ./tactica.yaml)")
	rootCmd.PersistentFlags().StringVar(&logModeFlag, "log-mode", "", "Log mode: dev, prod or off")

	rootCmd.AddCommand(newIngestCommand(ctx))
	rootCmd.AddCommand(newSessionsCommand(ctx))
	rootCmd.AddCommand(newDrillsCommand(ctx))
	rootCmd.AddCommand(newSearchCommand(ctx))
	rootCmd.AddCommand(newTaxonomyCommand(ctx))
	rootCmd.AddCommand(newStatsCommand(ctx))
	rootCmd.AddCommand(newReenrichCommand(ctx))

	return rootCmd
}
