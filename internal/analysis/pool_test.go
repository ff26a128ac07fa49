package analysis_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/CDrummond/bliss-analyser/internal/analysis"
	"github.com/CDrummond/bliss-analyser/internal/audio"
	"github.com/CDrummond/bliss-analyser/internal/plan"
	"github.com/CDrummond/bliss-analyser/internal/services"
	"github.com/CDrummond/bliss-analyser/internal/testsupport"
	"github.com/CDrummond/bliss-analyser/internal/track"
)

type fakeAnalyzer struct {
	calls atomic.Int64
	fn    func(ctx context.Context, req audio.Request) (track.Vector, error)
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req audio.Request) (track.Vector, error) {
	f.calls.Add(1)
	if f.fn != nil {
		return f.fn(ctx, req)
	}
	return testsupport.SampleVector(0.3), nil
}

type fakeTags struct {
	meta    map[string]track.Metadata
	vectors map[string]track.Vector
}

func (f *fakeTags) ReadMetadata(_ context.Context, path string) (track.Metadata, error) {
	if m, ok := f.meta[path]; ok {
		return m, nil
	}
	return track.Metadata{}, nil
}

func (f *fakeTags) ReadVector(_ context.Context, path string) (track.Vector, bool, error) {
	v, ok := f.vectors[path]
	return v, ok, nil
}

type fakeSink struct {
	mu      sync.Mutex
	records map[string]track.Record
	err     error
}

func newSink() *fakeSink { return &fakeSink{records: make(map[string]track.Record)} }

func (s *fakeSink) UpsertTrack(_ context.Context, rec track.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records[rec.Key.ID()] = rec
	return nil
}

func (s *fakeSink) all() []track.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]track.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out
}

type fakeProber struct{ d time.Duration }

func (p fakeProber) Probe(context.Context, string) (time.Duration, error) { return p.d, nil }

func jobs(n int) []track.Descriptor {
	out := make([]track.Descriptor, n)
	for i := range out {
		out[i] = track.Descriptor{
			Key:     track.FileKey{Path: fmt.Sprintf("Artist/%03d.flac", i)},
			Root:    "/music",
			ModTime: time.Unix(1_700_000_000, 0),
		}
	}
	return out
}

func TestRunCommitsResults(t *testing.T) {
	tags := &fakeTags{meta: map[string]track.Metadata{
		"/music/Artist/000.flac": {Title: "Zero", Artist: "Artist"},
	}}
	sink := newSink()
	pool := analysis.NewPool(&fakeAnalyzer{}, tags, sink, analysis.WithWorkers(3))

	report, err := pool.Run(context.Background(), jobs(2))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Total != 2 || report.Succeeded != 2 || report.Failed != 0 || report.Skipped != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.TagErrorCount != 1 || len(report.TagErrors) != 1 || report.TagErrors[0].ID != "Artist/001.flac" {
		t.Fatalf("expected tag error for untagged file, got %+v", report.TagErrors)
	}
	rec := sink.records["Artist/000.flac"]
	if !rec.Analysed || rec.Metadata.Title != "Zero" || rec.Vector != testsupport.SampleVector(0.3) {
		t.Fatalf("unexpected committed record %+v", rec)
	}
	if got := pool.Progress(); got.Done != 2 || got.Total != 2 {
		t.Fatalf("unexpected progress %+v", got)
	}
}

func TestRunCapsFailureList(t *testing.T) {
	analyzer := &fakeAnalyzer{fn: func(context.Context, audio.Request) (track.Vector, error) {
		return track.Vector{}, services.Wrap(services.ErrDecode, "audio", "decode", "", errors.New("bad frame"))
	}}
	sink := newSink()
	pool := analysis.NewPool(analyzer, &fakeTags{}, sink, analysis.WithWorkers(8))

	report, err := pool.Run(context.Background(), jobs(150))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Failed != 150 {
		t.Fatalf("expected 150 failures counted, got %d", report.Failed)
	}
	if len(report.Failures) != analysis.MaxFailures {
		t.Fatalf("expected %d failures listed, got %d", analysis.MaxFailures, len(report.Failures))
	}
	if report.Failures[0].Kind != "decode" {
		t.Fatalf("expected decode kind, got %q", report.Failures[0].Kind)
	}
	if len(report.TagErrors) != analysis.MaxTagErrors || report.TagErrorCount != 150 {
		t.Fatalf("expected capped tag errors, got %d/%d", len(report.TagErrors), report.TagErrorCount)
	}
	if len(sink.all()) != 0 {
		t.Fatal("failed tracks must not be committed")
	}
}

func TestRunCancellationLeavesRemainderForNextRun(t *testing.T) {
	const total, commitBeforeCancel = 10, 4
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	analyzer := &fakeAnalyzer{}
	analyzer.fn = func(jobCtx context.Context, _ audio.Request) (track.Vector, error) {
		if analyzer.calls.Load() == commitBeforeCancel {
			cancel()
		}
		if jobCtx.Err() != nil {
			return track.Vector{}, jobCtx.Err()
		}
		return testsupport.SampleVector(0.1), nil
	}
	sink := newSink()
	pool := analysis.NewPool(analyzer, &fakeTags{}, sink, analysis.WithWorkers(1))

	all := jobs(total)
	report, err := pool.Run(ctx, all)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !report.Cancelled {
		t.Fatal("expected cancelled report")
	}
	if report.Succeeded != commitBeforeCancel || report.Skipped != total-commitBeforeCancel {
		t.Fatalf("unexpected report %+v", report)
	}

	next := plan.Build(all, sink.all(), plan.Options{})
	if len(next.Add) != total-commitBeforeCancel {
		t.Fatalf("expected %d tracks left to add, got %d", total-commitBeforeCancel, len(next.Add))
	}
}

func TestRunInterruptAfterLastJobIsNotCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	analyzer := &fakeAnalyzer{fn: func(jobCtx context.Context, _ audio.Request) (track.Vector, error) {
		cancel()
		if jobCtx.Err() != nil {
			return track.Vector{}, jobCtx.Err()
		}
		return testsupport.SampleVector(0.2), nil
	}}
	sink := newSink()
	report, err := analysis.NewPool(analyzer, &fakeTags{}, sink, analysis.WithWorkers(2)).Run(ctx, jobs(1))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Cancelled || report.Skipped != 0 {
		t.Fatalf("expected a complete run, got %+v", report)
	}
	if report.Succeeded != 1 || len(sink.all()) != 1 {
		t.Fatalf("expected in-flight job committed, got %+v", report)
	}
}

func TestRunJobTimeout(t *testing.T) {
	analyzer := &fakeAnalyzer{fn: func(ctx context.Context, _ audio.Request) (track.Vector, error) {
		<-ctx.Done()
		return track.Vector{}, ctx.Err()
	}}
	pool := analysis.NewPool(analyzer, &fakeTags{}, newSink(), analysis.WithJobTimeout(20*time.Millisecond))

	report, err := pool.Run(context.Background(), jobs(1))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Failed != 1 || report.Failures[0].Kind != "timeout" {
		t.Fatalf("expected timeout failure, got %+v", report.Failures)
	}
}

func TestRunCueTracks(t *testing.T) {
	var requests sync.Map
	analyzer := &fakeAnalyzer{fn: func(_ context.Context, req audio.Request) (track.Vector, error) {
		requests.Store(req.Start, req)
		return testsupport.SampleVector(0.2), nil
	}}
	sheetMeta := track.Metadata{Title: "Part", Album: "Live"}
	cueJobs := []track.Descriptor{
		{Key: track.CueKey{Parent: "show.flac", Index: 1, End: time.Minute}, Root: "/music", Cue: &track.Metadata{Title: "One", Album: "Live", Duration: time.Minute}},
		{Key: track.CueKey{Parent: "show.flac", Index: 2, Start: time.Minute}, Root: "/music", Cue: &sheetMeta},
	}
	sink := newSink()
	pool := analysis.NewPool(analyzer, &fakeTags{}, sink, analysis.WithProber(fakeProber{d: 5 * time.Minute}))

	if _, err := pool.Run(context.Background(), cueJobs); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	last := sink.records["show.flac.CUE_TRACK.2"]
	if last.Metadata.Duration != 4*time.Minute || last.Metadata.Album != "Live" {
		t.Fatalf("unexpected last cue record %+v", last.Metadata)
	}
	v, ok := requests.Load(time.Duration(0))
	if !ok || v.(audio.Request).End != time.Minute || v.(audio.Request).Path != "/music/show.flac" {
		t.Fatalf("unexpected first request %+v", v)
	}
}

func TestRunReusesTagVectors(t *testing.T) {
	stored := testsupport.SampleVector(0.9)
	tags := &fakeTags{
		meta:    map[string]track.Metadata{"/music/Artist/000.flac": {Title: "T"}},
		vectors: map[string]track.Vector{"/music/Artist/000.flac": stored},
	}
	analyzer := &fakeAnalyzer{}
	sink := newSink()
	pool := analysis.NewPool(analyzer, tags, sink, analysis.WithTagVectors(true))

	if _, err := pool.Run(context.Background(), jobs(1)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if analyzer.calls.Load() != 0 {
		t.Fatal("expected analyzer to be skipped")
	}
	if sink.records["Artist/000.flac"].Vector != stored {
		t.Fatal("expected tag vector to be committed")
	}
}

func TestRunStopsOnSinkError(t *testing.T) {
	sink := newSink()
	sink.err = errors.New("disk full")
	pool := analysis.NewPool(&fakeAnalyzer{}, &fakeTags{}, sink, analysis.WithWorkers(1))

	report, err := pool.Run(context.Background(), jobs(5))
	if err == nil {
		t.Fatal("expected sink error")
	}
	if report.Skipped == 0 {
		t.Fatalf("expected remaining jobs to be skipped, got %+v", report)
	}
}

func TestRunReportsProgress(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []analysis.Progress
	)
	pool := analysis.NewPool(&fakeAnalyzer{}, &fakeTags{}, newSink(),
		analysis.WithWorkers(2),
		analysis.WithProgress(func(p analysis.Progress) {
			mu.Lock()
			seen = append(seen, p)
			mu.Unlock()
		}),
	)
	if _, err := pool.Run(context.Background(), jobs(6)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(seen) != 6 {
		t.Fatalf("expected 6 progress callbacks, got %d", len(seen))
	}
	for i := 1; i < len(seen); i++ {
		if seen[i].Done < seen[i-1].Done {
			t.Fatalf("progress went backwards: %+v", seen)
		}
	}
	if last := seen[len(seen)-1]; last.Done != 6 || last.Percent() != 100 {
		t.Fatalf("unexpected final progress %+v", last)
	}
}
