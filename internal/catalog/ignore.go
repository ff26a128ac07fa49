package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/CDrummond/bliss-analyser/internal/services"
	"github.com/CDrummond/bliss-analyser/internal/track"
)

// RawFilter is a trusted SQL predicate over the Tracks columns. It comes only
// from the user's own ignore file and is never built from track data.
type RawFilter struct {
	expr string
}

// NewRawFilter validates a predicate fragment. Statement separators and SQL
// comments are rejected.
func NewRawFilter(expr string) (RawFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return RawFilter{}, fmt.Errorf("%w: empty SQL filter", services.ErrValidation)
	}
	for _, bad := range []string{";", "--", "/*"} {
		if strings.Contains(expr, bad) {
			return RawFilter{}, fmt.Errorf("%w: SQL filter %q contains %q", services.ErrValidation, expr, bad)
		}
	}
	return RawFilter{expr: expr}, nil
}

func (f RawFilter) String() string { return f.expr }

// IgnoreExact flags the row whose ID equals id together with every CUE track
// derived from it. It returns the number of rows flagged.
func (s *Store) IgnoreExact(ctx context.Context, id string) (int64, error) {
	id = track.CleanRel(id)
	if id == "" {
		return 0, errors.New("ignore exact: empty path")
	}
	return s.ignore(ctx,
		"File = ?1 OR substr(File, 1, length(?2)) = ?2",
		id, id+track.CueMarker,
	)
}

// IgnorePrefix flags every row whose ID starts with prefix. The comparison is
// case sensitive and treats wildcard characters literally.
func (s *Store) IgnorePrefix(ctx context.Context, prefix string) (int64, error) {
	if strings.TrimSpace(prefix) == "" {
		return 0, errors.New("ignore prefix: empty prefix")
	}
	return s.ignore(ctx, "substr(File, 1, length(?1)) = ?1", prefix)
}

// IgnoreWhere flags every row matching the raw predicate.
func (s *Store) IgnoreWhere(ctx context.Context, filter RawFilter) (int64, error) {
	if filter.expr == "" {
		return 0, errors.New("ignore where: empty filter")
	}
	return s.ignore(ctx, "("+filter.expr+")")
}

func (s *Store) ignore(ctx context.Context, where string, args ...any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "UPDATE Tracks SET Ignore = 1 WHERE "+where, args...)
	if err != nil {
		return 0, fmt.Errorf("apply ignore %s: %w", where, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("ignore rows affected: %w", err)
	}
	return n, nil
}
