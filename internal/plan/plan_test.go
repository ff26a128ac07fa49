package plan

import (
	"testing"
	"time"

	"github.com/CDrummond/bliss-analyser/internal/track"
)

var baseTime = time.Unix(1_700_000_000, 0)

func desc(path string, mtime time.Time) track.Descriptor {
	return track.Descriptor{Key: track.FileKey{Path: path}, Root: "/music", ModTime: mtime}
}

func rec(path string, mtime time.Time) track.Record {
	return track.Record{Key: track.FileKey{Path: path}, Analysed: true, ModTime: mtime}
}

func idsOfDescriptors(descs []track.Descriptor) []string {
	out := make([]string, len(descs))
	for i, d := range descs {
		out[i] = d.Key.ID()
	}
	return out
}

func idsOfRecords(recs []track.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Key.ID()
	}
	return out
}

func assertIDs(t *testing.T, label string, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: expected %v, got %v", label, want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s: expected %v, got %v", label, want, got)
		}
	}
}

func TestBuildScenario(t *testing.T) {
	records := []track.Record{rec("a.mp3", baseTime), rec("b.mp3", baseTime)}
	disk := []track.Descriptor{desc("a.mp3", baseTime), desc("c.mp3", baseTime)}

	tests := []struct {
		name       string
		keepOld    bool
		wantRemove []string
		wantRetain []string
	}{
		{name: "remove missing", keepOld: false, wantRemove: []string{"b.mp3"}, wantRetain: []string{"a.mp3"}},
		{name: "keep old", keepOld: true, wantRemove: []string{}, wantRetain: []string{"a.mp3", "b.mp3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Build(disk, records, Options{KeepOld: tt.keepOld})
			assertIDs(t, "add", idsOfDescriptors(p.Add), []string{"c.mp3"})
			assertIDs(t, "remove", idsOfRecords(p.Remove), tt.wantRemove)
			assertIDs(t, "retain", idsOfRecords(p.Retain), tt.wantRetain)
		})
	}
}

func TestBuildIsIdempotentAfterApply(t *testing.T) {
	disk := []track.Descriptor{desc("a.mp3", baseTime), desc("c.mp3", baseTime)}
	first := Build(disk, nil, Options{})
	if len(first.Add) != 2 {
		t.Fatalf("expected both tracks added, got %d", len(first.Add))
	}

	var stored []track.Record
	for _, d := range first.Add {
		stored = append(stored, track.Record{Key: d.Key, Analysed: true, ModTime: d.ModTime})
	}
	second := Build(disk, stored, Options{})
	if s := second.Summary(); s.Add != 0 || s.Remove != 0 || s.Retain != 2 {
		t.Fatalf("expected empty second plan, got %+v", s)
	}
}

func TestBuildReAddsNewerAndUnanalysed(t *testing.T) {
	records := []track.Record{
		rec("newer.mp3", baseTime),
		rec("same.mp3", baseTime),
		{Key: track.FileKey{Path: "failed.mp3"}, ModTime: baseTime},
	}
	disk := []track.Descriptor{
		desc("newer.mp3", baseTime.Add(time.Minute)),
		desc("same.mp3", baseTime.Add(400*time.Millisecond)),
		desc("failed.mp3", baseTime),
	}
	p := Build(disk, records, Options{})
	assertIDs(t, "add", idsOfDescriptors(p.Add), []string{"newer.mp3", "failed.mp3"})
	assertIDs(t, "retain", idsOfRecords(p.Retain), []string{"same.mp3"})
}

func TestBuildTrustsRowsWithoutModTime(t *testing.T) {
	records := []track.Record{{Key: track.FileKey{Path: "legacy.mp3"}, Analysed: true}}
	p := Build([]track.Descriptor{desc("legacy.mp3", baseTime)}, records, Options{})
	if len(p.Add) != 0 || len(p.Retain) != 1 {
		t.Fatalf("expected legacy row retained, got %+v", p.Summary())
	}
}

func TestBuildCueFamily(t *testing.T) {
	cueDesc := func(i int, start, end time.Duration, mtime time.Time) track.Descriptor {
		return track.Descriptor{Key: track.CueKey{Parent: "show.flac", Index: i, Start: start, End: end}, ModTime: mtime}
	}
	cueRec := func(i int, start, end time.Duration) track.Record {
		return track.Record{Key: track.CueKey{Parent: "show.flac", Index: i, Start: start, End: end}, Analysed: true, ModTime: baseTime}
	}
	records := []track.Record{
		cueRec(1, 0, time.Minute),
		cueRec(2, time.Minute, 0),
		rec("show.flac", baseTime),
	}

	t.Run("unchanged", func(t *testing.T) {
		disk := []track.Descriptor{cueDesc(1, 0, time.Minute, baseTime), cueDesc(2, time.Minute, 0, baseTime)}
		p := Build(disk, records, Options{})
		if len(p.Add) != 0 {
			t.Fatalf("expected no additions, got %v", idsOfDescriptors(p.Add))
		}
		assertIDs(t, "remove", idsOfRecords(p.Remove), []string{"show.flac"})
	})

	t.Run("range moved", func(t *testing.T) {
		disk := []track.Descriptor{cueDesc(1, 0, 2*time.Minute, baseTime), cueDesc(2, 2*time.Minute, 0, baseTime)}
		p := Build(disk, records, Options{})
		assertIDs(t, "add", idsOfDescriptors(p.Add), []string{"show.flac.CUE_TRACK.1", "show.flac.CUE_TRACK.2"})
	})

	t.Run("family touched", func(t *testing.T) {
		later := baseTime.Add(time.Hour)
		disk := []track.Descriptor{cueDesc(1, 0, time.Minute, later), cueDesc(2, time.Minute, 0, later)}
		p := Build(disk, records, Options{})
		if len(p.Add) != 2 {
			t.Fatalf("expected whole family re-added, got %v", idsOfDescriptors(p.Add))
		}
	})
}

func TestBuildMaxTracksKeepsDiscoveryOrder(t *testing.T) {
	disk := []track.Descriptor{desc("z.mp3", baseTime), desc("a.mp3", baseTime), desc("m.mp3", baseTime)}
	p := Build(disk, nil, Options{MaxTracks: 2})
	assertIDs(t, "add", idsOfDescriptors(p.Add), []string{"z.mp3", "a.mp3"})
	if p.Deferred != 1 {
		t.Fatalf("expected 1 deferred, got %d", p.Deferred)
	}
}

func TestBuildRetainsRowsUnderUnreadableDirs(t *testing.T) {
	records := []track.Record{rec("Locked/a.mp3", baseTime), rec("Gone/b.mp3", baseTime), rec("LockedToo/c.mp3", baseTime)}
	p := Build(nil, records, Options{Unreadable: []string{"Locked"}})
	assertIDs(t, "remove", idsOfRecords(p.Remove), []string{"Gone/b.mp3", "LockedToo/c.mp3"})
	assertIDs(t, "retain", idsOfRecords(p.Retain), []string{"Locked/a.mp3"})
	assertIDs(t, "remove ids", p.RemoveIDs(), []string{"Gone/b.mp3", "LockedToo/c.mp3"})
}

func TestBuildDryRunFlag(t *testing.T) {
	p := Build([]track.Descriptor{desc("a.mp3", baseTime)}, nil, Options{DryRun: true})
	if !p.Summary().DryRun || len(p.Add) != 1 {
		t.Fatalf("unexpected dry run plan %+v", p.Summary())
	}
}
