package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Snapshot writes a consistent, compacted copy of the catalogue to dest,
// replacing any existing file there.
func (s *Store) Snapshot(ctx context.Context, dest string) error {
	if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale snapshot: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return fmt.Errorf("snapshot catalogue: %w", err)
	}
	return nil
}
