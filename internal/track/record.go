package track

import (
	"path/filepath"
	"strings"
	"time"
)

// GenreSeparator joins multiple genres in a single stored value.
const GenreSeparator = ";"

// Metadata holds the tag derived attributes of a track.
type Metadata struct {
	Title       string
	Artist      string
	AlbumArtist string
	Album       string
	Genres      []string
	Duration    time.Duration
}

// Empty reports whether none of the descriptive tags are set.
func (m Metadata) Empty() bool {
	return m.Title == "" && m.Artist == "" && m.Album == "" && len(m.Genres) == 0
}

// Genre returns the genres joined for storage.
func (m Metadata) Genre() string {
	return strings.Join(m.Genres, GenreSeparator)
}

// SplitGenres splits a stored or tagged genre value, dropping blanks.
func SplitGenres(value string) []string {
	var genres []string
	for _, g := range strings.Split(value, GenreSeparator) {
		if g = strings.TrimSpace(g); g != "" {
			genres = append(genres, g)
		}
	}
	return genres
}

// Record is one catalogue row.
type Record struct {
	Key      Key
	Metadata Metadata
	Ignored  bool
	Analysed bool
	// Vector is meaningful only when Analysed is true.
	Vector  Vector
	ModTime time.Time
}

// Descriptor is a track discovered on disk.
type Descriptor struct {
	Key Key
	// Root is the absolute music root the key is relative to.
	Root    string
	ModTime time.Time
	// Cue carries sheet metadata for CUE-derived tracks and is nil otherwise.
	Cue *Metadata
}

// AbsPath resolves the audio file backing the descriptor.
func (d Descriptor) AbsPath() string {
	return filepath.Join(d.Root, filepath.FromSlash(d.Key.Source()))
}
