// Package plan diffs discovered tracks against the catalogue.
package plan

import (
	"strings"
	"time"

	"github.com/CDrummond/bliss-analyser/internal/track"
)

// Options controls plan policy.
type Options struct {
	// KeepOld suppresses removals.
	KeepOld bool
	// DryRun marks the plan as report-only; Build does not act on it.
	DryRun bool
	// MaxTracks caps the add set when positive.
	MaxTracks int
	// Unreadable lists relative directories that could not be scanned. Rows
	// beneath them are retained rather than removed.
	Unreadable []string
}

// Plan is the outcome of a diff. Add, Remove and Retain are disjoint.
type Plan struct {
	Add    []track.Descriptor
	Remove []track.Record
	Retain []track.Record
	// Deferred counts additions dropped by MaxTracks.
	Deferred int
	DryRun   bool
}

// Summary holds plan counts.
type Summary struct {
	Add      int
	Remove   int
	Retain   int
	Deferred int
	DryRun   bool
}

// Summary returns the plan counts.
func (p *Plan) Summary() Summary {
	return Summary{
		Add:      len(p.Add),
		Remove:   len(p.Remove),
		Retain:   len(p.Retain),
		Deferred: p.Deferred,
		DryRun:   p.DryRun,
	}
}

// RemoveIDs returns the IDs of rows to delete.
func (p *Plan) RemoveIDs() []string {
	ids := make([]string, len(p.Remove))
	for i, rec := range p.Remove {
		ids[i] = rec.Key.ID()
	}
	return ids
}

// Build diffs descriptors, in discovery order, against the stored records.
func Build(descriptors []track.Descriptor, records []track.Record, opts Options) *Plan {
	stored := make(map[string]track.Record, len(records))
	for _, rec := range records {
		stored[rec.Key.ID()] = rec
	}

	p := &Plan{DryRun: opts.DryRun}
	matched := make(map[string]struct{}, len(descriptors))
	for _, desc := range descriptors {
		id := desc.Key.ID()
		if _, dup := matched[id]; dup {
			continue
		}
		matched[id] = struct{}{}

		rec, ok := stored[id]
		if ok && unchanged(desc, rec) {
			p.Retain = append(p.Retain, rec)
			continue
		}
		p.Add = append(p.Add, desc)
	}

	for _, rec := range records {
		if _, ok := matched[rec.Key.ID()]; ok {
			continue
		}
		if opts.KeepOld || underAny(rec.Key.ID(), opts.Unreadable) {
			p.Retain = append(p.Retain, rec)
			continue
		}
		p.Remove = append(p.Remove, rec)
	}

	if opts.MaxTracks > 0 && len(p.Add) > opts.MaxTracks {
		p.Deferred = len(p.Add) - opts.MaxTracks
		p.Add = p.Add[:opts.MaxTracks]
	}
	return p
}

// unchanged reports whether a stored row still describes the discovered
// track. Rows without a recorded mtime predate change tracking and are
// trusted.
func unchanged(desc track.Descriptor, rec track.Record) bool {
	if !rec.Analysed {
		return false
	}
	if rec.ModTime.IsZero() {
		return true
	}
	if desc.ModTime.Truncate(time.Second).After(rec.ModTime) {
		return false
	}
	if dk, ok := desc.Key.(track.CueKey); ok {
		rk, ok := rec.Key.(track.CueKey)
		return ok && dk.SameRange(rk)
	}
	return true
}

func underAny(id string, dirs []string) bool {
	for _, dir := range dirs {
		if dir == "" {
			return true
		}
		if strings.HasPrefix(id, dir+"/") {
			return true
		}
	}
	return false
}
