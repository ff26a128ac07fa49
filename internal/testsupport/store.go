package testsupport

import (
	"context"
	"testing"
	"time"

	"github.com/CDrummond/bliss-analyser/internal/catalog"
	"github.com/CDrummond/bliss-analyser/internal/config"
	"github.com/CDrummond/bliss-analyser/internal/track"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg.Paths.DB)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedTrack stores an analysed row for id with a deterministic vector.
func SeedTrack(t testing.TB, store *catalog.Store, key track.Key, mtime time.Time) track.Record {
	t.Helper()

	rec := track.Record{
		Key:      key,
		Metadata: track.Metadata{Title: key.ID(), Artist: "Artist", Album: "Album", Genres: []string{"Rock"}, Duration: 3 * time.Minute},
		Analysed: true,
		Vector:   SampleVector(0.5),
		ModTime:  mtime,
	}
	if err := store.UpsertTrack(context.Background(), rec); err != nil {
		t.Fatalf("store.UpsertTrack(%s): %v", key.ID(), err)
	}
	return rec
}

// SampleVector returns a vector whose components step up from base.
func SampleVector(base float64) track.Vector {
	var v track.Vector
	for i := range v {
		v[i] = base + float64(i)/100
	}
	return v
}
