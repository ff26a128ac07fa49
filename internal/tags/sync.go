package tags

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/CDrummond/bliss-analyser/internal/logging"
	"github.com/CDrummond/bliss-analyser/internal/services"
	"github.com/CDrummond/bliss-analyser/internal/track"
)

// MaxMissing caps the detailed list of catalogue rows without a file.
const MaxMissing = 50

// Store is the catalogue surface used by the synchronizer.
type Store interface {
	Tracks(ctx context.Context) ([]track.Record, error)
	UpdateMetadata(ctx context.Context, id string, meta track.Metadata) error
	SetModTime(ctx context.Context, id string, mtime time.Time) error
}

// Reader reads file metadata.
type Reader interface {
	ReadMetadata(ctx context.Context, path string) (track.Metadata, error)
}

// Writer stores analysis vectors in file tags.
type Writer interface {
	WriteVector(ctx context.Context, path string, vec track.Vector) error
}

// Options controls a synchronization run.
type Options struct {
	Roots         []string
	WriteVectors  bool
	PreserveMTime bool
}

// Failure is a per-file read or write error.
type Failure struct {
	ID    string
	Error string
}

// Report summarizes a synchronization run.
type Report struct {
	Checked        int
	Updated        int
	VectorsWritten int
	// Skipped counts CUE-derived rows, which have no tags of their own.
	Skipped      int
	Missing      []string
	MissingCount int
	Failures     []Failure
}

// Synchronizer refreshes catalogue metadata from file tags.
type Synchronizer struct {
	store  Store
	reader Reader
	writer Writer
	opts   Options
	logger *slog.Logger
}

// NewSynchronizer constructs a synchronizer. writer may be nil when vectors
// are not written.
func NewSynchronizer(store Store, reader Reader, writer Writer, opts Options, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Synchronizer{
		store:  store,
		reader: reader,
		writer: writer,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "tags"),
	}
}

// Run visits every catalogue row. Per-file failures are collected; store
// failures and cancellation stop the run.
func (s *Synchronizer) Run(ctx context.Context) (Report, error) {
	var report Report
	if s.opts.WriteVectors && s.writer == nil {
		return report, fmt.Errorf("%w: vector writing enabled without a writer", services.ErrConfiguration)
	}

	records, err := s.store.Tracks(ctx)
	if err != nil {
		return report, err
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		key, ok := rec.Key.(track.FileKey)
		if !ok {
			report.Skipped++
			continue
		}

		path, info, found := s.locate(key.Path)
		if !found {
			report.MissingCount++
			if len(report.Missing) < MaxMissing {
				report.Missing = append(report.Missing, key.Path)
			}
			continue
		}
		report.Checked++
		logger := s.logger.With(logging.Track(key.Path))

		meta, err := s.reader.ReadMetadata(ctx, path)
		switch {
		case err != nil:
			report.Failures = append(report.Failures, Failure{ID: key.Path, Error: err.Error()})
			logger.Warn("tag read failed", logging.Error(err))
		case meta.Empty():
			report.Failures = append(report.Failures, Failure{ID: key.Path, Error: "no tags"})
			logger.Warn("no tags found")
		case !Equal(meta, rec.Metadata):
			if err := s.store.UpdateMetadata(ctx, key.Path, meta); err != nil {
				return report, err
			}
			report.Updated++
			logger.Debug("metadata updated")
		}

		if !s.opts.WriteVectors || !rec.Analysed {
			continue
		}
		if err := s.writer.WriteVector(ctx, path, rec.Vector); err != nil {
			report.Failures = append(report.Failures, Failure{ID: key.Path, Error: err.Error()})
			logger.Warn("vector write failed", logging.Error(err))
			continue
		}
		report.VectorsWritten++
		if err := s.settle(ctx, key.Path, path, info); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			report.Failures = append(report.Failures, Failure{ID: key.Path, Error: err.Error()})
			logger.Warn("restoring modification time failed", logging.Error(err))
		}
	}
	return report, nil
}

// settle keeps the next analyse run from treating a rewritten file as changed.
func (s *Synchronizer) settle(ctx context.Context, id, path string, before os.FileInfo) error {
	if s.opts.PreserveMTime {
		mtime := before.ModTime()
		return os.Chtimes(path, mtime, mtime)
	}
	after, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return s.store.SetModTime(ctx, id, after.ModTime().Truncate(time.Second))
}

func (s *Synchronizer) locate(rel string) (string, os.FileInfo, bool) {
	for _, root := range s.opts.Roots {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, info, true
		}
	}
	return "", nil, false
}

// Equal compares metadata after trimming and Unicode NFC normalization.
// Durations are compared at second precision.
func Equal(a, b track.Metadata) bool {
	return same(a.Title, b.Title) &&
		same(a.Artist, b.Artist) &&
		same(a.AlbumArtist, b.AlbumArtist) &&
		same(a.Album, b.Album) &&
		slices.EqualFunc(a.Genres, b.Genres, same) &&
		a.Duration/time.Second == b.Duration/time.Second
}

func same(a, b string) bool {
	return norm.NFC.String(strings.TrimSpace(a)) == norm.NFC.String(strings.TrimSpace(b))
}
