package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"

	"github.com/CDrummond/bliss-analyser/internal/analysis"
	"github.com/CDrummond/bliss-analyser/internal/logging"
)

// progressReporter draws a live bar on terminals and falls back to sampled
// log lines otherwise.
type progressReporter struct {
	writer  progress.Writer
	tracker *progress.Tracker
	sampler *logging.ProgressSampler
	logger  *slog.Logger
}

func newProgressReporter(out io.Writer, total int, logger *slog.Logger) *progressReporter {
	r := &progressReporter{logger: logger}
	if total == 0 {
		return r
	}
	if !isTerminal(out) {
		r.sampler = logging.NewProgressSampler(5)
		return r
	}

	pw := progress.NewWriter()
	pw.SetOutputWriter(out)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(30)
	pw.SetUpdateFrequency(200 * time.Millisecond)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Visibility.ETA = true
	pw.Style().Visibility.Value = true

	r.tracker = &progress.Tracker{Message: "Analysing", Total: int64(total), Units: progress.UnitsDefault}
	pw.AppendTracker(r.tracker)
	r.writer = pw
	go pw.Render()
	return r
}

// update is installed as the pool's progress callback.
func (r *progressReporter) update(p analysis.Progress) {
	switch {
	case r.tracker != nil:
		r.tracker.SetValue(int64(p.Done))
		if p.Failed > 0 {
			r.tracker.UpdateMessage(fmt.Sprintf("Analysing (%d failed)", p.Failed))
		}
	case r.sampler != nil:
		if r.sampler.ShouldLog(p.Done, p.Total) {
			r.logger.Info("analysis progress",
				logging.Int("done", p.Done),
				logging.Int("failed", p.Failed),
				logging.Int("total", p.Total),
			)
		}
	}
}

func (r *progressReporter) finish(cancelled bool) {
	if r.writer == nil {
		return
	}
	if cancelled {
		r.tracker.MarkAsErrored()
	} else {
		r.tracker.MarkAsDone()
	}
	// Let the renderer draw the final state before stopping it.
	time.Sleep(250 * time.Millisecond)
	r.writer.Stop()
}
