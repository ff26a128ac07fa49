package ignore_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/CDrummond/bliss-analyser/internal/catalog"
	"github.com/CDrummond/bliss-analyser/internal/ignore"
	"github.com/CDrummond/bliss-analyser/internal/testsupport"
	"github.com/CDrummond/bliss-analyser/internal/track"
)

const sampleIgnore = `# comments and blank lines are skipped

Christmas/
Various/Party Hits/03 Novelty.mp3
/music/Live/show.flac
SQL:Genre='Spoken Word'
SQL:1=1; DROP TABLE Tracks
/elsewhere/file.mp3
../outside.mp3
`

func TestParseClassifiesLines(t *testing.T) {
	rules, bad, err := ignore.Parse(strings.NewReader(sampleIgnore), []string{"/music"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(rules) != 4 {
		t.Fatalf("expected 4 rules, got %d: %v", len(rules), rules)
	}
	if r, ok := rules[0].(ignore.PrefixRule); !ok || r.Prefix != "Christmas/" {
		t.Fatalf("expected prefix rule, got %#v", rules[0])
	}
	if r, ok := rules[1].(ignore.ExactRule); !ok || r.Path != "Various/Party Hits/03 Novelty.mp3" {
		t.Fatalf("expected exact rule, got %#v", rules[1])
	}
	if r, ok := rules[2].(ignore.ExactRule); !ok || r.Path != "Live/show.flac" || r.Line() != 5 {
		t.Fatalf("expected absolute path made relative, got %#v", rules[2])
	}
	if r, ok := rules[3].(ignore.RawRule); !ok || r.Filter.String() != "Genre='Spoken Word'" {
		t.Fatalf("expected raw rule, got %#v", rules[3])
	}

	if len(bad) != 3 {
		t.Fatalf("expected 3 malformed lines, got %v", bad)
	}
	wantLines := []int{7, 8, 9}
	for i, lineErr := range bad {
		if lineErr.Line != wantLines[i] {
			t.Fatalf("expected malformed line %d, got %d", wantLines[i], lineErr.Line)
		}
	}
}

type recordingTarget struct {
	calls   []string
	failRaw bool
	failAll bool
}

func (r *recordingTarget) IgnoreExact(_ context.Context, id string) (int64, error) {
	if r.failAll {
		return 0, errors.New("database is locked")
	}
	r.calls = append(r.calls, "exact:"+id)
	return 1, nil
}

func (r *recordingTarget) IgnorePrefix(_ context.Context, prefix string) (int64, error) {
	r.calls = append(r.calls, "prefix:"+prefix)
	return 2, nil
}

func (r *recordingTarget) IgnoreWhere(_ context.Context, filter catalog.RawFilter) (int64, error) {
	if r.failRaw {
		return 0, errors.New("no such column: Genr")
	}
	r.calls = append(r.calls, "raw:"+filter.String())
	return 3, nil
}

func TestApplyReportsRawFailuresAndContinues(t *testing.T) {
	rules, _, err := ignore.Parse(strings.NewReader("SQL:Genr='x'\nA/\nb.mp3\n"), nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	target := &recordingTarget{failRaw: true}
	res, err := ignore.Apply(context.Background(), target, rules, nil)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(res.Errors) != 1 || res.Errors[0].Line != 1 {
		t.Fatalf("expected raw failure on line 1, got %+v", res.Errors)
	}
	if res.Matched() != 3 || len(target.calls) != 2 {
		t.Fatalf("expected remaining rules applied, got %v (matched %d)", target.calls, res.Matched())
	}
}

func TestApplyStopsOnStoreError(t *testing.T) {
	rules, _, err := ignore.Parse(strings.NewReader("a.mp3\nB/\n"), nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, err := ignore.Apply(context.Background(), &recordingTarget{failAll: true}, rules, nil); err == nil {
		t.Fatal("expected store error to stop Apply")
	}
}

func TestApplyAgainstCatalogue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for _, key := range []track.Key{
		track.FileKey{Path: "Artist/a.mp3"},
		track.FileKey{Path: "Artist/b.mp3"},
		track.FileKey{Path: "Other/c.mp3"},
		track.FileKey{Path: "Other/d.mp3"},
		track.CueKey{Parent: "Live/show.flac", Index: 1, End: time.Minute},
	} {
		testsupport.SeedTrack(t, store, key, time.Unix(1, 0))
	}
	// Pre-existing flags are left alone.
	if _, err := store.IgnoreExact(ctx, "Other/d.mp3"); err != nil {
		t.Fatalf("IgnoreExact failed: %v", err)
	}

	rules, bad, err := ignore.Parse(strings.NewReader("Artist/\nLive/show.flac\n"), nil)
	if err != nil || len(bad) != 0 {
		t.Fatalf("Parse failed: %v %v", err, bad)
	}
	res, err := ignore.Apply(ctx, store, rules, nil)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if res.Matched() != 3 {
		t.Fatalf("expected 3 rows flagged, got %d", res.Matched())
	}

	records, err := store.Tracks(ctx)
	if err != nil {
		t.Fatalf("Tracks failed: %v", err)
	}
	want := map[string]bool{
		"Artist/a.mp3":               true,
		"Artist/b.mp3":               true,
		"Other/c.mp3":                false,
		"Other/d.mp3":                true,
		"Live/show.flac.CUE_TRACK.1": true,
	}
	for _, rec := range records {
		if rec.Ignored != want[rec.Key.ID()] {
			t.Fatalf("%s: expected ignored=%v", rec.Key.ID(), want[rec.Key.ID()])
		}
	}
}
