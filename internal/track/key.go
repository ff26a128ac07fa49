package track

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
)

// CueMarker separates the parent path from the 1-based track index in the ID
// of a CUE-derived track, e.g. "Album/disc.flac.CUE_TRACK.3".
const CueMarker = ".CUE_TRACK."

// Key identifies a track. The only implementations are FileKey and CueKey.
type Key interface {
	// ID is the unique catalogue identifier.
	ID() string
	// Source is the relative path of the audio file that holds the samples.
	Source() string
	isKey()
}

// FileKey addresses a whole audio file.
type FileKey struct {
	Path string
}

func (k FileKey) ID() string     { return k.Path }
func (k FileKey) Source() string { return k.Path }
func (FileKey) isKey()           {}

// CueKey addresses one entry of a CUE sheet. End is zero for the final entry,
// which runs until the end of the parent file.
type CueKey struct {
	Parent string
	Index  int
	Start  time.Duration
	End    time.Duration
}

func (k CueKey) ID() string     { return k.Parent + CueMarker + strconv.Itoa(k.Index) }
func (k CueKey) Source() string { return k.Parent }
func (CueKey) isKey()           {}

// Length returns the range length, or zero when the range is open ended.
func (k CueKey) Length() time.Duration {
	if k.End <= k.Start {
		return 0
	}
	return k.End - k.Start
}

// SameRange reports whether both keys cover the same offsets.
func (k CueKey) SameRange(other CueKey) bool {
	return k.Start == other.Start && k.End == other.End
}

// ParseID rebuilds a key from a catalogue ID. CUE offsets are not part of the
// ID, so callers restore them from the stored row.
func ParseID(id string) (Key, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("parse track id: empty")
	}
	idx := strings.LastIndex(id, CueMarker)
	if idx < 0 {
		return FileKey{Path: id}, nil
	}
	n, err := strconv.Atoi(id[idx+len(CueMarker):])
	if err != nil || n < 1 {
		return nil, fmt.Errorf("parse track id %q: invalid cue index", id)
	}
	return CueKey{Parent: id[:idx], Index: n}, nil
}

// CleanRel normalizes a relative path to the slash separated form used in keys.
func CleanRel(rel string) string {
	rel = strings.ReplaceAll(rel, "\\", "/")
	rel = path.Clean(rel)
	rel = strings.TrimPrefix(rel, "./")
	if rel == "." {
		return ""
	}
	return rel
}
