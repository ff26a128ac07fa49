package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/CDrummond/bliss-analyser/internal/audio"
	"github.com/CDrummond/bliss-analyser/internal/logging"
	"github.com/CDrummond/bliss-analyser/internal/services"
	"github.com/CDrummond/bliss-analyser/internal/track"
)

// Analyzer computes the feature vector of an audio range.
type Analyzer interface {
	Analyze(ctx context.Context, req audio.Request) (track.Vector, error)
}

// TagReader reads file tags.
type TagReader interface {
	ReadMetadata(ctx context.Context, path string) (track.Metadata, error)
	ReadVector(ctx context.Context, path string) (track.Vector, bool, error)
}

// DurationProber reports the length of an audio file.
type DurationProber interface {
	Probe(ctx context.Context, path string) (time.Duration, error)
}

// Sink persists analysed tracks.
type Sink interface {
	UpsertTrack(ctx context.Context, rec track.Record) error
}

// Progress is a point-in-time view of a run.
type Progress struct {
	Done   int
	Failed int
	Total  int
}

// Percent returns completion in the 0-100 range.
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 100
	}
	return float64(p.Done) * 100 / float64(p.Total)
}

// Report summarizes a run.
type Report struct {
	Total     int
	Succeeded int
	Failed    int
	// Failures holds at most MaxFailures entries; Failed is the full count.
	Failures      []Failure
	TagErrors     []Failure
	TagErrorCount int
	// Skipped counts jobs never started because the run was cancelled.
	Skipped   int
	// Cancelled is set only when the interrupt left jobs unstarted.
	Cancelled bool
	Elapsed   time.Duration
}

// Pool analyses tracks concurrently.
type Pool struct {
	analyzer   Analyzer
	tags       TagReader
	sink       Sink
	prober     DurationProber
	workers    int
	jobTimeout time.Duration
	tagVectors bool
	logger     *slog.Logger
	onProgress func(Progress)

	progressMu sync.Mutex
	total      atomic.Int64
	done       atomic.Int64
	failed     atomic.Int64
}

// Option configures a Pool.
type Option func(*Pool)

// WithWorkers bounds concurrency. Values below one select the CPU count.
func WithWorkers(n int) Option {
	return func(p *Pool) { p.workers = n }
}

// WithJobTimeout bounds each analyzer call. Zero disables the bound.
func WithJobTimeout(d time.Duration) Option {
	return func(p *Pool) { p.jobTimeout = d }
}

// WithTagVectors reuses vectors already stored in file tags.
func WithTagVectors(enabled bool) Option {
	return func(p *Pool) { p.tagVectors = enabled }
}

// WithProber sets the duration source for open ended CUE tracks whose parent
// file tags do not report a length.
func WithProber(prober DurationProber) Option {
	return func(p *Pool) { p.prober = prober }
}

// WithLogger sets the pool logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logging.NewComponentLogger(logger, "analysis")
		}
	}
}

// WithProgress registers a callback invoked after every finished job. Calls
// are serialized.
func WithProgress(fn func(Progress)) Option {
	return func(p *Pool) { p.onProgress = fn }
}

// NewPool constructs a pool.
func NewPool(analyzer Analyzer, tags TagReader, sink Sink, opts ...Option) *Pool {
	p := &Pool{
		analyzer: analyzer,
		tags:     tags,
		sink:     sink,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.workers < 1 {
		p.workers = runtime.NumCPU()
	}
	return p
}

// Progress returns the current counters. It is safe to call while Run is
// active.
func (p *Pool) Progress() Progress {
	return Progress{
		Done:   int(p.done.Load()),
		Failed: int(p.failed.Load()),
		Total:  int(p.total.Load()),
	}
}

// Run analyses every job and commits successes to the sink. Per-track
// failures are reported in the Report; a sink error stops dispatch and is
// returned once in-flight jobs have finished.
func (p *Pool) Run(ctx context.Context, jobs []track.Descriptor) (Report, error) {
	start := time.Now()
	p.total.Store(int64(len(jobs)))
	p.done.Store(0)
	p.failed.Store(0)

	runCtx, stop := context.WithCancelCause(ctx)
	defer stop(nil)

	var (
		failures  = NewFailureLog(MaxFailures)
		tagErrors = NewFailureLog(MaxTagErrors)
		started   atomic.Int64
		succeeded atomic.Int64
		sinkErr   error
		sinkOnce  sync.Once
	)

	queue := make(chan track.Descriptor)
	go func() {
		defer close(queue)
		for _, job := range jobs {
			select {
			case <-runCtx.Done():
				return
			case queue <- job:
			}
		}
	}()

	workers := min(p.workers, max(len(jobs), 1))
	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			for job := range queue {
				if runCtx.Err() != nil {
					continue
				}
				started.Add(1)

				outcome := p.process(runCtx, job)
				if outcome.tagErr != nil {
					tagErrors.Add(*outcome.tagErr)
				}
				switch {
				case outcome.sinkErr != nil:
					sinkOnce.Do(func() {
						sinkErr = outcome.sinkErr
						stop(outcome.sinkErr)
					})
					p.failed.Add(1)
				case outcome.failure != nil:
					failures.Add(*outcome.failure)
					p.failed.Add(1)
				default:
					succeeded.Add(1)
				}
				p.done.Add(1)
				p.notify()
			}
		})
	}
	wg.Wait()

	report := Report{
		Total:         len(jobs),
		Succeeded:     int(succeeded.Load()),
		Failed:        failures.Total(),
		Failures:      failures.Entries(),
		TagErrors:     tagErrors.Entries(),
		TagErrorCount: tagErrors.Total(),
		Skipped:       len(jobs) - int(started.Load()),
		Elapsed:       time.Since(start),
	}
	report.Cancelled = report.Skipped > 0 && ctx.Err() != nil
	if sinkErr != nil {
		return report, fmt.Errorf("commit analysis: %w", sinkErr)
	}
	return report, nil
}

func (p *Pool) notify() {
	if p.onProgress == nil {
		return
	}
	p.progressMu.Lock()
	defer p.progressMu.Unlock()
	p.onProgress(p.Progress())
}

type outcome struct {
	failure *Failure
	tagErr  *Failure
	sinkErr error
}

// process analyses one track. The run context is only consulted before the
// job starts; the work itself runs detached so it can finish after an
// interrupt.
func (p *Pool) process(runCtx context.Context, job track.Descriptor) outcome {
	ctx := context.WithoutCancel(runCtx)
	path := job.AbsPath()
	id := job.Key.ID()
	logger := p.logger.With(logging.Track(id))

	var out outcome
	fail := func(err error) outcome {
		out.failure = &Failure{ID: id, Path: path, Kind: services.Kind(err), Error: err.Error()}
		logger.Warn("analysis failed", logging.String("kind", out.failure.Kind), logging.Error(err))
		return out
	}

	rec := track.Record{Key: job.Key, ModTime: job.ModTime}
	req := audio.Request{Path: path}

	switch key := job.Key.(type) {
	case track.FileKey:
		meta, err := p.tags.ReadMetadata(ctx, path)
		if err != nil {
			logger.Debug("tag read failed", logging.Error(err))
		}
		rec.Metadata = meta
		if meta.Empty() {
			msg := "no tags"
			if err != nil {
				msg = err.Error()
			}
			out.tagErr = &Failure{ID: id, Path: path, Kind: "tags", Error: msg}
		}
		if p.tagVectors {
			if vec, ok, err := p.tags.ReadVector(ctx, path); err == nil && ok {
				rec.Vector = vec
				rec.Analysed = true
			}
		}
	case track.CueKey:
		if job.Cue != nil {
			rec.Metadata = *job.Cue
		}
		req.Start = key.Start
		req.End = key.End
		if key.End == 0 {
			rec.Metadata.Duration = p.remaining(ctx, path, key.Start)
		}
	default:
		return fail(fmt.Errorf("%w: unsupported key %T", services.ErrValidation, job.Key))
	}

	if !rec.Analysed {
		vec, err := p.analyze(ctx, req)
		if err != nil {
			return fail(err)
		}
		rec.Vector = vec
		rec.Analysed = true
	}

	if err := p.sink.UpsertTrack(ctx, rec); err != nil {
		out.sinkErr = err
		logger.Error("commit failed", logging.Error(err))
		return out
	}
	logger.Debug("track analysed")
	return out
}

func (p *Pool) analyze(ctx context.Context, req audio.Request) (track.Vector, error) {
	if p.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.jobTimeout)
		defer cancel()
	}
	vec, err := p.analyzer.Analyze(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, services.ErrTimeout) {
			err = services.Wrap(services.ErrTimeout, "analysis", "analyze", fmt.Sprintf("exceeded %s", p.jobTimeout), err)
		}
		return track.Vector{}, err
	}
	if err := vec.Validate(); err != nil {
		return track.Vector{}, services.Wrap(services.ErrDecode, "analysis", "analyze", "", err)
	}
	return vec, nil
}

// remaining returns the length of the parent file after start.
func (p *Pool) remaining(ctx context.Context, path string, start time.Duration) time.Duration {
	var total time.Duration
	if meta, err := p.tags.ReadMetadata(ctx, path); err == nil {
		total = meta.Duration
	}
	if total <= 0 && p.prober != nil {
		if d, err := p.prober.Probe(ctx, path); err == nil {
			total = d
		}
	}
	if total <= start {
		return 0
	}
	return total - start
}
