package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/CDrummond/bliss-analyser/internal/analysis"
	"github.com/CDrummond/bliss-analyser/internal/audio"
	"github.com/CDrummond/bliss-analyser/internal/logging"
	"github.com/CDrummond/bliss-analyser/internal/plan"
	"github.com/CDrummond/bliss-analyser/internal/preflight"
	"github.com/CDrummond/bliss-analyser/internal/scanner"
	"github.com/CDrummond/bliss-analyser/internal/tags"
	"github.com/CDrummond/bliss-analyser/internal/track"
)

// dryRunListLimit caps the per-track rows printed for a dry run.
const dryRunListLimit = 50

func newAnalyseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "analyse",
		Aliases: []string{"analyze"},
		Short:   "Scan the music folders and analyse new or changed tracks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := ctx.begin(cmd)
			if err != nil {
				return err
			}
			defer inv.stop()
			return runAnalyse(cmd, inv)
		},
	}
}

func runAnalyse(cmd *cobra.Command, inv *invocation) error {
	out := cmd.OutOrStdout()
	cfg := inv.cfg
	logger := inv.logger

	results := preflight.RunAll(cfg)
	for _, line := range preflightLines(results, shouldColorize(out)) {
		fmt.Fprintln(out, line)
	}
	if err := preflight.Err(results); err != nil {
		return err
	}

	store, err := inv.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	scan := scanner.New(scanner.WithLogger(logger))
	if err := scan.Validate(cfg.Paths.Music); err != nil {
		return err
	}
	logger.Info("scanning music folders", logging.Int("roots", len(cfg.Paths.Music)))
	found, err := scanner.Collect(inv.ctx, scan.Walk(inv.ctx, cfg.Paths.Music))
	if err != nil {
		return err
	}
	for _, scanErr := range found.Errors {
		logger.Warn("discovery error", logging.Error(scanErr))
	}

	records, err := store.Tracks(inv.ctx)
	if err != nil {
		return err
	}
	p := plan.Build(found.Descriptors, records, plan.Options{
		KeepOld:    cfg.Analysis.KeepOld,
		DryRun:     cfg.Analysis.DryRun,
		MaxTracks:  cfg.Analysis.MaxTracks,
		Unreadable: found.Unreadable,
	})
	fmt.Fprintln(out, renderPlan(p.Summary()))

	if p.DryRun {
		writeDryRun(out, p)
		return nil
	}

	if ids := p.RemoveIDs(); len(ids) > 0 {
		removed, err := store.DeleteTracks(inv.ctx, ids)
		if err != nil {
			return err
		}
		logger.Info("removed missing tracks", logging.Int64("count", removed))
	}

	if len(p.Add) == 0 {
		fmt.Fprintln(out, "No new tracks to analyse")
		return nil
	}

	reporter := newProgressReporter(out, len(p.Add), logger)
	pool := analysis.NewPool(
		audio.NewFFmpegAnalyzer(cfg.Analysis.FFmpeg),
		tags.NewTagLib(cfg.Tags.VectorTag),
		store,
		analysis.WithWorkers(cfg.Analysis.Workers),
		analysis.WithJobTimeout(cfg.JobTimeout()),
		analysis.WithTagVectors(cfg.Analysis.UseTagVectors),
		analysis.WithProber(audio.NewProber(cfg.Analysis.FFprobe)),
		analysis.WithLogger(logger),
		analysis.WithProgress(reporter.update),
	)
	report, err := pool.Run(inv.ctx, p.Add)
	reporter.finish(report.Cancelled || err != nil)
	if err != nil {
		return err
	}

	writeAnalysisReport(out, report, p.Deferred)
	return nil
}

func renderPlan(s plan.Summary) string {
	rows := [][]string{
		{"To analyse", strconv.Itoa(s.Add)},
		{"To remove", strconv.Itoa(s.Remove)},
		{"Unchanged", strconv.Itoa(s.Retain)},
	}
	if s.Deferred > 0 {
		rows = append(rows, []string{"Deferred (max tracks)", strconv.Itoa(s.Deferred)})
	}
	title := "Plan"
	if s.DryRun {
		title = "Plan (dry run)"
	}
	return renderCounts(title, rows)
}

func writeDryRun(out io.Writer, p *plan.Plan) {
	if len(p.Add) > 0 {
		rows := make([][]string, 0, min(len(p.Add), dryRunListLimit))
		for _, desc := range p.Add[:min(len(p.Add), dryRunListLimit)] {
			rows = append(rows, []string{desc.Key.ID(), trackKind(desc.Key)})
		}
		fmt.Fprintln(out, renderTable([]string{"Would analyse", "Kind"}, rows))
		if extra := len(p.Add) - len(rows); extra > 0 {
			fmt.Fprintf(out, "... and %d more\n", extra)
		}
	}
	if len(p.Remove) > 0 {
		rows := make([][]string, 0, min(len(p.Remove), dryRunListLimit))
		for _, rec := range p.Remove[:min(len(p.Remove), dryRunListLimit)] {
			rows = append(rows, []string{rec.Key.ID()})
		}
		fmt.Fprintln(out, renderTable([]string{"Would remove"}, rows))
		if extra := len(p.Remove) - len(rows); extra > 0 {
			fmt.Fprintf(out, "... and %d more\n", extra)
		}
	}
}

func trackKind(key track.Key) string {
	if _, ok := key.(track.CueKey); ok {
		return "cue"
	}
	return "file"
}

func writeAnalysisReport(out io.Writer, report analysis.Report, deferred int) {
	rows := [][]string{
		{"Analysed", strconv.Itoa(report.Succeeded)},
		{"Failed", strconv.Itoa(report.Failed)},
		{"Tag errors", strconv.Itoa(report.TagErrorCount)},
	}
	if report.Skipped > 0 {
		rows = append(rows, []string{"Not started", strconv.Itoa(report.Skipped)})
	}
	if deferred > 0 {
		rows = append(rows, []string{"Deferred (max tracks)", strconv.Itoa(deferred)})
	}
	fmt.Fprintln(out, renderCounts("Summary", rows))
	fmt.Fprintf(out, "Elapsed: %s\n", report.Elapsed.Round(time.Second))

	if len(report.Failures) > 0 {
		fmt.Fprintln(out, renderFailures("Failed track", report.Failures))
		if hidden := report.Failed - len(report.Failures); hidden > 0 {
			fmt.Fprintf(out, "%d further failures not listed\n", hidden)
		}
	}
	if len(report.TagErrors) > 0 {
		fmt.Fprintln(out, renderFailures("Tag error", report.TagErrors))
		if hidden := report.TagErrorCount - len(report.TagErrors); hidden > 0 {
			fmt.Fprintf(out, "%d further tag errors not listed\n", hidden)
		}
	}
	if report.Cancelled {
		remaining := report.Skipped + report.Failed
		fmt.Fprintf(out, "Interrupted: %d tracks remain unanalysed and will be retried on the next run\n", remaining)
	}
}

func renderFailures(title string, failures []analysis.Failure) string {
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{f.ID, f.Kind, firstLine(f.Error)})
	}
	return renderTable([]string{title, "Kind", "Error"}, rows)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
