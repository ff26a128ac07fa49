package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/CDrummond/bliss-analyser/internal/services"
	"github.com/CDrummond/bliss-analyser/internal/track"
)

// UpsertTrack inserts or replaces the row for rec.Key. The ignore flag of an
// existing row is left untouched.
func (s *Store) UpsertTrack(ctx context.Context, rec track.Record) error {
	if rec.Key == nil {
		return errors.New("upsert track: nil key")
	}
	if rec.Analysed {
		if err := rec.Vector.Validate(); err != nil {
			return fmt.Errorf("upsert track %s: %w", rec.Key.ID(), err)
		}
	}

	args := []any{
		rec.Key.ID(),
		nullableString(rec.Metadata.Title),
		nullableString(rec.Metadata.Artist),
		nullableString(rec.Metadata.Album),
		nullableString(rec.Metadata.AlbumArtist),
		nullableString(rec.Metadata.Genre()),
		int64(rec.Metadata.Duration / time.Second),
		boolToInt(rec.Ignored),
	}
	for _, f := range rec.Vector {
		if rec.Analysed {
			args = append(args, f)
		} else {
			args = append(args, nil)
		}
	}
	cueStart, cueEnd := cueRange(rec.Key)
	args = append(args, boolToInt(rec.Analysed), unixSeconds(rec.ModTime), cueStart, cueEnd)

	updates := []string{
		"Title = excluded.Title",
		"Artist = excluded.Artist",
		"Album = excluded.Album",
		"AlbumArtist = excluded.AlbumArtist",
		"Genre = excluded.Genre",
		"Duration = excluded.Duration",
	}
	for _, name := range track.FeatureNames {
		updates = append(updates, name+" = excluded."+name)
	}
	updates = append(updates,
		"Analysed = excluded.Analysed",
		"MTime = excluded.MTime",
		"CueStart = excluded.CueStart",
		"CueEnd = excluded.CueEnd",
	)

	query := "INSERT INTO Tracks (" + trackColumns + ") VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ") +
		") ON CONFLICT(File) DO UPDATE SET " + strings.Join(updates, ", ")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert track %s: %w", rec.Key.ID(), err)
	}
	return nil
}

// DeleteTrack removes a single row. Deleting a missing row is not an error.
func (s *Store) DeleteTrack(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM Tracks WHERE File = ?", id); err != nil {
		return fmt.Errorf("delete track %s: %w", id, err)
	}
	return nil
}

// DeleteTracks removes the given rows in one transaction and returns how many
// existed.
func (s *Store) DeleteTracks(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM Tracks WHERE File = ?")
	if err != nil {
		return 0, fmt.Errorf("prepare delete: %w", err)
	}
	defer stmt.Close()

	var removed int64
	for _, id := range ids {
		res, err := stmt.ExecContext(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("delete track %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			removed += n
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete: %w", err)
	}
	return removed, nil
}

// Tracks returns every row ordered by ID.
func (s *Store) Tracks(ctx context.Context) ([]track.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+trackColumns+" FROM Tracks ORDER BY File")
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()

	var records []track.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracks: %w", err)
	}
	return records, nil
}

// Track fetches one row by ID.
func (s *Store) Track(ctx context.Context, id string) (track.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+trackColumns+" FROM Tracks WHERE File = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return track.Record{}, fmt.Errorf("%w: track %s", services.ErrNotFound, id)
	}
	if err != nil {
		return track.Record{}, fmt.Errorf("get track %s: %w", id, err)
	}
	return rec, nil
}

// UpdateMetadata replaces the tag derived columns of an existing row.
func (s *Store) UpdateMetadata(ctx context.Context, id string, meta track.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE Tracks SET Title = ?, Artist = ?, Album = ?, AlbumArtist = ?, Genre = ?, Duration = ?
         WHERE File = ?`,
		nullableString(meta.Title),
		nullableString(meta.Artist),
		nullableString(meta.Album),
		nullableString(meta.AlbumArtist),
		nullableString(meta.Genre()),
		int64(meta.Duration/time.Second),
		id,
	)
	if err != nil {
		return fmt.Errorf("update metadata %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: track %s", services.ErrNotFound, id)
	}
	return nil
}

// SetModTime records the modification time observed for an existing row.
func (s *Store) SetModTime(ctx context.Context, id string, mtime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "UPDATE Tracks SET MTime = ? WHERE File = ?", unixSeconds(mtime), id)
	if err != nil {
		return fmt.Errorf("update mtime %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: track %s", services.ErrNotFound, id)
	}
	return nil
}

// Counts summarizes the catalogue.
type Counts struct {
	Total    int
	Analysed int
	Ignored  int
}

// Count returns row totals.
func (s *Store) Count(ctx context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c Counts
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1),
                COALESCE(SUM(CASE WHEN Analysed = 1 THEN 1 ELSE 0 END), 0),
                COALESCE(SUM(CASE WHEN Ignore = 1 THEN 1 ELSE 0 END), 0)
         FROM Tracks`,
	).Scan(&c.Total, &c.Analysed, &c.Ignored)
	if err != nil {
		return Counts{}, fmt.Errorf("count tracks: %w", err)
	}
	return c, nil
}
