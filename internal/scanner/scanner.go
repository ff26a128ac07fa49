package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/CDrummond/bliss-analyser/internal/cue"
	"github.com/CDrummond/bliss-analyser/internal/logging"
	"github.com/CDrummond/bliss-analyser/internal/track"
)

// ExclusionMarker excludes the directory holding it from scanning.
const ExclusionMarker = ".notmusic"

// DefaultExtensions lists the audio file types that are analysed.
var DefaultExtensions = []string{".m4a", ".mp3", ".ogg", ".flac", ".opus"}

// DirError reports a directory that could not be read. Rel is relative to
// the music root it belongs to.
type DirError struct {
	Root string
	Rel  string
	Err  error
}

func (e *DirError) Error() string {
	return fmt.Sprintf("read directory %s: %v", filepath.Join(e.Root, e.Rel), e.Err)
}

func (e *DirError) Unwrap() error { return e.Err }

// ErrDuplicate reports a track ID already produced by an earlier root.
var ErrDuplicate = errors.New("duplicate track id")

// Scanner walks music roots.
type Scanner struct {
	logger     *slog.Logger
	extensions map[string]struct{}
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger used for skip notices.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logging.NewComponentLogger(logger, "scanner")
		}
	}
}

// WithExtensions replaces the accepted audio extensions.
func WithExtensions(exts ...string) Option {
	return func(s *Scanner) {
		s.extensions = make(map[string]struct{}, len(exts))
		for _, ext := range exts {
			ext = strings.ToLower(ext)
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			s.extensions[ext] = struct{}{}
		}
	}
}

// New constructs a Scanner.
func New(opts ...Option) *Scanner {
	s := &Scanner{logger: logging.NewNop()}
	WithExtensions(DefaultExtensions...)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate checks that every root is an existing, readable directory.
func (s *Scanner) Validate(roots []string) error {
	if len(roots) == 0 {
		return errors.New("no music roots configured")
	}
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return fmt.Errorf("music root %s: %w", root, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("music root %s is not a directory", root)
		}
		f, err := os.Open(root)
		if err != nil {
			return fmt.Errorf("music root %s: %w", root, err)
		}
		_ = f.Close()
	}
	return nil
}

// Walk lazily yields descriptors for every track under roots. A track ID
// already produced by an earlier root is reported as ErrDuplicate. Walking
// stops early when ctx is cancelled or the consumer stops iterating.
func (s *Scanner) Walk(ctx context.Context, roots []string) iter.Seq2[track.Descriptor, error] {
	return func(yield func(track.Descriptor, error) bool) {
		seen := make(map[string]string)
		for _, root := range roots {
			if !s.walkRoot(ctx, root, seen, yield) {
				return
			}
		}
	}
}

func (s *Scanner) walkRoot(ctx context.Context, root string, seen map[string]string, yield func(track.Descriptor, error) bool) bool {
	keepGoing := true
	emit := func(desc track.Descriptor, err error) bool {
		if !yield(desc, err) {
			keepGoing = false
		}
		return keepGoing
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = track.CleanRel(filepath.ToSlash(rel))

		if err != nil {
			if d != nil && !d.IsDir() {
				if !emit(track.Descriptor{}, fmt.Errorf("stat %s: %w", path, err)) {
					return fs.SkipAll
				}
				return nil
			}
			if !emit(track.Descriptor{}, &DirError{Root: root, Rel: rel, Err: err}) {
				return fs.SkipAll
			}
			if d != nil {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if _, statErr := os.Stat(filepath.Join(path, ExclusionMarker)); statErr == nil {
				s.logger.Info("skipping directory", logging.Path(path), logging.String("marker", ExclusionMarker))
				return fs.SkipDir
			}
			return nil
		}
		if !s.accepts(path) || !isFile(path, d) {
			return nil
		}

		for desc, err := range s.describe(root, path, rel) {
			if err == nil {
				if first, dup := seen[desc.Key.ID()]; dup {
					err = fmt.Errorf("%w: %s already found under %s", ErrDuplicate, desc.Key.ID(), first)
				} else {
					seen[desc.Key.ID()] = root
				}
			}
			if err != nil {
				desc = track.Descriptor{}
			}
			if !emit(desc, err) {
				return fs.SkipAll
			}
		}
		return nil
	})

	if walkErr != nil && keepGoing {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			yield(track.Descriptor{}, walkErr)
			return false
		}
		return emit(track.Descriptor{}, fmt.Errorf("walk %s: %w", root, walkErr))
	}
	return keepGoing
}

func (s *Scanner) accepts(path string) bool {
	_, ok := s.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// isFile follows symlinks so linked audio files are picked up.
func isFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// describe yields the descriptors for one audio file. A sheet that cannot be
// used is reported and the file falls back to a whole-file descriptor.
func (s *Scanner) describe(root, path, rel string) iter.Seq2[track.Descriptor, error] {
	return func(yield func(track.Descriptor, error) bool) {
		info, err := os.Stat(path)
		if err != nil {
			yield(track.Descriptor{}, fmt.Errorf("stat %s: %w", path, err))
			return
		}
		mtime := info.ModTime().Truncate(time.Second)
		whole := track.Descriptor{Key: track.FileKey{Path: rel}, Root: root, ModTime: mtime}

		sheetPath := cue.SheetPath(path)
		sheetInfo, err := os.Stat(sheetPath)
		if err != nil {
			yield(whole, nil)
			return
		}

		sheet, err := cue.ParseFile(sheetPath)
		var entries []cue.Entry
		if err == nil {
			entries, err = cue.Expand(sheet, rel)
		}
		if err != nil {
			if !yield(track.Descriptor{}, fmt.Errorf("cue sheet %s: %w", sheetPath, err)) {
				return
			}
			yield(whole, nil)
			return
		}

		if sheetTime := sheetInfo.ModTime().Truncate(time.Second); sheetTime.After(mtime) {
			mtime = sheetTime
		}
		for _, entry := range entries {
			meta := entry.Metadata
			desc := track.Descriptor{Key: entry.Key, Root: root, ModTime: mtime, Cue: &meta}
			if !yield(desc, nil) {
				return
			}
		}
	}
}

// Result is the drained output of a walk.
type Result struct {
	Descriptors []track.Descriptor
	Errors      []error
	// Unreadable lists the relative directories that could not be read.
	Unreadable []string
}

// Collect drains a walk. A cancelled context is returned as the error; all
// other failures are collected in the result.
func Collect(ctx context.Context, seq iter.Seq2[track.Descriptor, error]) (Result, error) {
	var res Result
	for desc, err := range seq {
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return res, err
			}
			var dirErr *DirError
			if errors.As(err, &dirErr) {
				res.Unreadable = append(res.Unreadable, dirErr.Rel)
			}
			res.Errors = append(res.Errors, err)
			continue
		}
		res.Descriptors = append(res.Descriptors, desc)
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}
