package cue

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/CDrummond/bliss-analyser/internal/track"
)

// Entry is one expanded sheet track.
type Entry struct {
	Key      track.CueKey
	Metadata track.Metadata
}

// SheetPath returns the sheet location for an audio file: the same path with
// the extension replaced by ".cue".
func SheetPath(audioPath string) string {
	return strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + Extension
}

// Expand turns a single-FILE sheet into entries keyed under parent, the
// relative path of the audio file. The final entry is open ended and its
// duration is left at zero for the caller to fill in from the parent file.
func Expand(sheet *Sheet, parent string) ([]Entry, error) {
	if sheet == nil {
		return nil, ErrNoTracks
	}
	if len(sheet.Files) != 1 {
		return nil, fmt.Errorf("cue sheet for %s references %d files, want 1", parent, len(sheet.Files))
	}
	tracks := sheet.Files[0].Tracks
	if len(tracks) == 0 {
		return nil, ErrNoTracks
	}

	album := sheet.Title
	if album == "" {
		base := path.Base(parent)
		album = strings.TrimSuffix(base, path.Ext(base))
	}
	genres := track.SplitGenres(sheet.Genre)

	entries := make([]Entry, 0, len(tracks))
	for i, t := range tracks {
		key := track.CueKey{Parent: parent, Index: i + 1, Start: t.Start}
		if i+1 < len(tracks) {
			key.End = tracks[i+1].Start
			if key.End <= key.Start {
				return nil, fmt.Errorf("cue sheet for %s: track %d does not start after track %d", parent, i+2, i+1)
			}
		}
		artist := t.Performer
		if artist == "" {
			artist = sheet.Performer
		}
		entries = append(entries, Entry{
			Key: key,
			Metadata: track.Metadata{
				Title:       t.Title,
				Artist:      artist,
				AlbumArtist: sheet.Performer,
				Album:       album,
				Genres:      genres,
				Duration:    key.Length(),
			},
		})
	}
	return entries, nil
}
