package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/CDrummond/bliss-analyser/internal/ignore"
	"github.com/CDrummond/bliss-analyser/internal/logging"
)

func newIgnoreCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ignore",
		Short: "Mark tracks listed in the ignore file as ignored",
		Long: "Each line of the ignore file is a track path, a folder ending in '/', or a filter prefixed with " +
			ignore.RawPrefix + " that is applied to the catalogue as written. Ignoring is additive; rows are never un-ignored.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := ctx.begin(cmd)
			if err != nil {
				return err
			}
			defer inv.stop()

			path := inv.cfg.Paths.Ignore
			info, err := os.Stat(path)
			switch {
			case errors.Is(err, fs.ErrNotExist):
				return fmt.Errorf("ignore file %s does not exist", path)
			case err != nil:
				return fmt.Errorf("stat ignore file: %w", err)
			case !info.Mode().IsRegular():
				return fmt.Errorf("ignore file %s is not a file", path)
			}

			rules, lineErrs, err := ignore.ParseFile(path, inv.cfg.Paths.Music)
			if err != nil {
				return err
			}
			for _, lineErr := range lineErrs {
				inv.logger.Warn("skipping ignore line", logging.Error(lineErr))
			}

			store, err := inv.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			result, err := ignore.Apply(inv.ctx, store, rules, inv.logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(result.Applied) > 0 {
				rows := make([][]string, 0, len(result.Applied))
				for _, applied := range result.Applied {
					rows = append(rows, []string{
						strconv.Itoa(applied.Rule.Line()),
						applied.Rule.String(),
						strconv.FormatInt(applied.Matched, 10),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Line", "Rule", "Matched"}, rows, 0, 2))
			}

			problems := append(append([]ignore.LineError(nil), lineErrs...), result.Errors...)
			if len(problems) > 0 {
				rows := make([][]string, 0, len(problems))
				for _, p := range problems {
					rows = append(rows, []string{strconv.Itoa(p.Line), p.Text, firstLine(p.Err.Error())})
				}
				fmt.Fprintln(out, renderTable([]string{"Line", "Skipped", "Reason"}, rows, 0))
			}
			fmt.Fprintf(out, "%d tracks marked as ignored\n", result.Matched())
			return nil
		},
	}
}
