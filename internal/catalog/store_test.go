package catalog_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/CDrummond/bliss-analyser/internal/catalog"
	"github.com/CDrummond/bliss-analyser/internal/services"
	"github.com/CDrummond/bliss-analyser/internal/testsupport"
	"github.com/CDrummond/bliss-analyser/internal/track"
)

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	counts, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if counts.Total != 0 {
		t.Fatalf("expected empty catalogue, got %+v", counts)
	}
}

func TestOpenRejectsSecondWriter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_ = testsupport.MustOpenStore(t, cfg)

	second, err := catalog.Open(cfg.Paths.DB)
	if err == nil {
		second.Close()
		t.Fatal("expected second open to fail")
	}
	if !errors.Is(err, catalog.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestOpenAfterCloseSucceeds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := catalog.Open(cfg.Paths.DB)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	second, err := catalog.Open(cfg.Paths.DB)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	second.Close()
}

func TestUpsertAndFetchRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	mtime := time.Unix(1_700_000_000, 0)
	key := track.CueKey{Parent: "Album/disc.flac", Index: 2, Start: 90 * time.Second, End: 200 * time.Second}
	rec := track.Record{
		Key: key,
		Metadata: track.Metadata{
			Title:       "Second",
			Artist:      "Artist",
			AlbumArtist: "Various",
			Album:       "Album",
			Genres:      []string{"Rock", "Pop"},
			Duration:    110 * time.Second,
		},
		Analysed: true,
		Vector:   testsupport.SampleVector(0.1),
		ModTime:  mtime,
	}
	if err := store.UpsertTrack(ctx, rec); err != nil {
		t.Fatalf("UpsertTrack failed: %v", err)
	}

	got, err := store.Track(ctx, "Album/disc.flac.CUE_TRACK.2")
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	gotKey, ok := got.Key.(track.CueKey)
	if !ok {
		t.Fatalf("expected CueKey, got %T", got.Key)
	}
	if !gotKey.SameRange(key) || gotKey.Parent != key.Parent || gotKey.Index != 2 {
		t.Fatalf("unexpected key %+v", gotKey)
	}
	if got.Metadata.Genre() != "Rock;Pop" || got.Metadata.AlbumArtist != "Various" {
		t.Fatalf("unexpected metadata %+v", got.Metadata)
	}
	if got.Metadata.Duration != 110*time.Second {
		t.Fatalf("expected duration 110s, got %v", got.Metadata.Duration)
	}
	if !got.Analysed || got.Vector != rec.Vector {
		t.Fatalf("vector not preserved: %+v", got)
	}
	if !got.ModTime.Equal(mtime) {
		t.Fatalf("expected mtime %v, got %v", mtime, got.ModTime)
	}
}

func TestUpsertPreservesIgnoreFlag(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	key := track.FileKey{Path: "Artist/song.mp3"}
	testsupport.SeedTrack(t, store, key, time.Unix(100, 0))
	if _, err := store.IgnoreExact(ctx, key.Path); err != nil {
		t.Fatalf("IgnoreExact failed: %v", err)
	}

	testsupport.SeedTrack(t, store, key, time.Unix(200, 0))
	got, err := store.Track(ctx, key.ID())
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if !got.Ignored {
		t.Fatal("expected ignore flag to survive re-analysis")
	}
	if got.ModTime.Unix() != 200 {
		t.Fatalf("expected refreshed mtime, got %v", got.ModTime)
	}
}

func TestUpsertRejectsInvalidVector(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	var v track.Vector
	v[3] = nanValue()
	err := store.UpsertTrack(context.Background(), track.Record{
		Key:      track.FileKey{Path: "bad.flac"},
		Analysed: true,
		Vector:   v,
	})
	if !errors.Is(err, track.ErrInvalidVector) {
		t.Fatalf("expected ErrInvalidVector, got %v", err)
	}
}

func TestTrackMissingReturnsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := store.Track(context.Background(), "missing.flac")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTracks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for _, p := range []string{"a.flac", "b.flac", "c.flac"} {
		testsupport.SeedTrack(t, store, track.FileKey{Path: p}, time.Unix(1, 0))
	}
	removed, err := store.DeleteTracks(ctx, []string{"a.flac", "c.flac", "zzz.flac"})
	if err != nil {
		t.Fatalf("DeleteTracks failed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 rows removed, got %d", removed)
	}
	if err := store.DeleteTrack(ctx, "b.flac"); err != nil {
		t.Fatalf("DeleteTrack failed: %v", err)
	}
	records, err := store.Tracks(ctx)
	if err != nil {
		t.Fatalf("Tracks failed: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty catalogue, got %d rows", len(records))
	}
}

func TestUpdateMetadataLeavesVector(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	key := track.FileKey{Path: "x.ogg"}
	seeded := testsupport.SeedTrack(t, store, key, time.Unix(5, 0))
	meta := track.Metadata{Title: "New", Artist: "Someone", Genres: []string{"Folk"}, Duration: time.Minute}
	if err := store.UpdateMetadata(ctx, key.ID(), meta); err != nil {
		t.Fatalf("UpdateMetadata failed: %v", err)
	}
	got, err := store.Track(ctx, key.ID())
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if got.Metadata.Title != "New" || got.Metadata.Album != "" || got.Metadata.Genre() != "Folk" {
		t.Fatalf("unexpected metadata %+v", got.Metadata)
	}
	if got.Vector != seeded.Vector {
		t.Fatal("expected vector to be unchanged")
	}

	if err := store.UpdateMetadata(ctx, "missing", meta); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSnapshotProducesReadableCopy(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedTrack(t, store, track.FileKey{Path: "one.flac"}, time.Unix(1, 0))
	testsupport.SeedTrack(t, store, track.FileKey{Path: "two.flac"}, time.Unix(1, 0))

	dest := filepath.Join(t.TempDir(), "snapshot.db")
	testsupport.WriteText(t, dest, "stale")
	if err := store.Snapshot(ctx, dest); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	db, err := sql.Open("sqlite", dest)
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	defer db.Close()
	var count int
	if err := db.QueryRow("SELECT COUNT(1) FROM Tracks").Scan(&count); err != nil {
		t.Fatalf("query snapshot: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows in snapshot, got %d", count)
	}
}

func TestOpenUpgradesLegacyLayout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bliss.db")

	legacy, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open legacy: %v", err)
	}
	_, err = legacy.Exec(`CREATE TABLE Tracks (File text primary key, Title text, Artist text, Album text,
        AlbumArtist text, Genre text, Duration integer, Ignore integer, Tempo real, Zcr real,
        MeanSpectralCentroid real, StdDevSpectralCentroid real, MeanSpectralRolloff real,
        StdDevSpectralRolloff real, MeanSpectralFlatness real, StdDevSpectralFlatness real,
        MeanLoudness real, StdDevLoudness real, Chroma1 real, Chroma2 real, Chroma3 real,
        Chroma4 real, Chroma5 real, Chroma6 real, Chroma7 real, Chroma8 real, Chroma9 real,
        Chroma10 real)`)
	if err != nil {
		t.Fatalf("create legacy table: %v", err)
	}
	if _, err := legacy.Exec(`INSERT INTO Tracks (File, Title, Duration, Ignore, Tempo) VALUES ('old.mp3', 'Old', 60, 1, 0.4)`); err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}
	legacy.Close()

	store, err := catalog.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	got, err := store.Track(context.Background(), "old.mp3")
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if !got.Analysed || !got.Ignored || got.Vector[0] != 0.4 {
		t.Fatalf("legacy row not upgraded: %+v", got)
	}
	if !got.ModTime.IsZero() {
		t.Fatalf("expected unknown mtime, got %v", got.ModTime)
	}
}
