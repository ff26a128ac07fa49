package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/CDrummond/bliss-analyser/internal/tags"
)

func newTagsCommand(ctx *commandContext) *cobra.Command {
	var writeVectors bool

	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Refresh stored metadata from file tags",
		Long: "Re-reads the tags of every catalogued file and updates the stored title, artist, album and genre " +
			"when they differ. Tracks split out of CUE sheets are skipped.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := ctx.begin(cmd)
			if err != nil {
				return err
			}
			defer inv.stop()

			store, err := inv.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			cfg := inv.cfg
			tagLib := tags.NewTagLib(cfg.Tags.VectorTag)
			synchronizer := tags.NewSynchronizer(store, tagLib, tagLib, tags.Options{
				Roots:         cfg.Paths.Music,
				WriteVectors:  cfg.Tags.WriteVectors || writeVectors,
				PreserveMTime: cfg.Tags.PreserveMTime,
			}, inv.logger)

			report, err := synchronizer.Run(inv.ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rows := [][]string{
				{"Checked", strconv.Itoa(report.Checked)},
				{"Updated", strconv.Itoa(report.Updated)},
				{"Vectors written", strconv.Itoa(report.VectorsWritten)},
				{"Skipped (CUE)", strconv.Itoa(report.Skipped)},
				{"Missing", strconv.Itoa(report.MissingCount)},
				{"Failed", strconv.Itoa(len(report.Failures))},
			}
			fmt.Fprintln(out, renderCounts("Tags", rows))

			if len(report.Missing) > 0 {
				missing := make([][]string, 0, len(report.Missing))
				for _, id := range report.Missing {
					missing = append(missing, []string{id})
				}
				fmt.Fprintln(out, renderTable([]string{"Missing file"}, missing))
				if hidden := report.MissingCount - len(report.Missing); hidden > 0 {
					fmt.Fprintf(out, "%d further missing files not listed\n", hidden)
				}
			}
			if len(report.Failures) > 0 {
				failed := make([][]string, 0, len(report.Failures))
				for _, f := range report.Failures {
					failed = append(failed, []string{f.ID, firstLine(f.Error)})
				}
				fmt.Fprintln(out, renderTable([]string{"File", "Error"}, failed))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&writeVectors, "write-vectors", false, "Also write analysis results into each file's tags")
	return cmd
}
