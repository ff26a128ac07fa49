package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	ctx := newCommandContext(flags)

	rootCmd := &cobra.Command{
		Use:           "bliss-analyser",
		Short:         "Analyse a music library for the Bliss mixer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx.flagSet = cmd.Flags()
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "Configuration file path")
	pf.StringArrayVarP(&flags.music, "music", "m", nil, "Music folder (repeat for up to five)")
	pf.StringVarP(&flags.db, "db", "d", "", "Database location")
	pf.StringVarP(&flags.logging, "logging", "l", "", "Log level (debug, info, warn, error)")
	pf.BoolVarP(&flags.keepOld, "keep-old", "k", false, "Keep entries for files that no longer exist")
	pf.BoolVarP(&flags.dryRun, "dry-run", "r", false, "Report what would be analysed without changing anything")
	pf.StringVarP(&flags.ignore, "ignore", "i", "", "Ignore file")
	pf.StringVarP(&flags.lms, "lms", "L", "", "LMS host, optionally user:pass@host")
	pf.IntVarP(&flags.jsonPort, "json-port", "J", 0, "LMS JSON-RPC port")
	pf.IntVarP(&flags.workers, "workers", "n", 0, "Analysis workers (0 uses every CPU)")
	pf.IntVarP(&flags.maxTracks, "max-tracks", "N", 0, "Analyse at most this many new tracks (0 is unlimited)")

	rootCmd.AddCommand(newAnalyseCommand(ctx))
	rootCmd.AddCommand(newTagsCommand(ctx))
	rootCmd.AddCommand(newIgnoreCommand(ctx))
	rootCmd.AddCommand(newUploadCommand(ctx))
	rootCmd.AddCommand(newStopMixerCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
