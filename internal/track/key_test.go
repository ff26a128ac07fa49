package track

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestKeyIDs(t *testing.T) {
	file := FileKey{Path: "Artist/Album/01.flac"}
	if file.ID() != "Artist/Album/01.flac" || file.Source() != file.Path {
		t.Fatalf("unexpected file key id %q", file.ID())
	}

	cue := CueKey{Parent: "Artist/Album/disc.flac", Index: 3, Start: time.Minute}
	if got := cue.ID(); got != "Artist/Album/disc.flac.CUE_TRACK.3" {
		t.Fatalf("cue id = %q", got)
	}
	if cue.Source() != "Artist/Album/disc.flac" {
		t.Fatalf("cue source = %q", cue.Source())
	}
	if cue.Length() != 0 {
		t.Fatalf("open ended range should have zero length, got %v", cue.Length())
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		id      string
		want    Key
		wantErr bool
	}{
		{id: "a.mp3", want: FileKey{Path: "a.mp3"}},
		{id: "x/disc.flac.CUE_TRACK.12", want: CueKey{Parent: "x/disc.flac", Index: 12}},
		{id: "x/disc.flac.CUE_TRACK.zero", wantErr: true},
		{id: "x/disc.flac.CUE_TRACK.0", wantErr: true},
		{id: "  ", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseID(tt.id)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseID(%q) expected error", tt.id)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseID(%q): %v", tt.id, err)
		}
		if got != tt.want {
			t.Fatalf("ParseID(%q) = %#v, want %#v", tt.id, got, tt.want)
		}
	}
}

func TestVectorRoundTripAndValidation(t *testing.T) {
	var v Vector
	for i := range v {
		v[i] = float64(i) / 4
	}
	parsed, err := ParseVector(v.String())
	if err != nil {
		t.Fatalf("ParseVector: %v", err)
	}
	if parsed != v {
		t.Fatalf("round trip mismatch: %v vs %v", parsed, v)
	}

	if _, err := ParseVector("1,2,3"); !errors.Is(err, ErrInvalidVector) {
		t.Fatalf("expected ErrInvalidVector for short vector, got %v", err)
	}

	v[4] = math.NaN()
	if err := v.Validate(); !errors.Is(err, ErrInvalidVector) {
		t.Fatalf("expected NaN to be rejected, got %v", err)
	}
}

func TestSplitGenres(t *testing.T) {
	got := SplitGenres(" Rock; ;Pop ")
	if len(got) != 2 || got[0] != "Rock" || got[1] != "Pop" {
		t.Fatalf("SplitGenres = %v", got)
	}
	if (Metadata{Genres: got}).Genre() != "Rock;Pop" {
		t.Fatal("unexpected joined genre")
	}
}

func TestCleanRel(t *testing.T) {
	if got := CleanRel(`./A\B/../C/d.mp3`); got != "A/C/d.mp3" {
		t.Fatalf("CleanRel = %q", got)
	}
}
