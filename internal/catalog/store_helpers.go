package catalog

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/CDrummond/bliss-analyser/internal/track"
)

var (
	vectorColumns = strings.Join(track.FeatureNames[:], ", ")
	trackColumns  = "File, Title, Artist, Album, AlbumArtist, Genre, Duration, Ignore, " +
		vectorColumns + ", Analysed, MTime, CueStart, CueEnd"
)

func scanRecord(scanner interface{ Scan(dest ...any) error }) (track.Record, error) {
	var (
		file        string
		title       sql.NullString
		artist      sql.NullString
		album       sql.NullString
		albumArtist sql.NullString
		genre       sql.NullString
		duration    sql.NullInt64
		ignore      sql.NullInt64
		features    [track.NumFeatures]sql.NullFloat64
		analysed    sql.NullInt64
		mtime       sql.NullInt64
		cueStart    sql.NullInt64
		cueEnd      sql.NullInt64
	)

	dest := []any{&file, &title, &artist, &album, &albumArtist, &genre, &duration, &ignore}
	for i := range features {
		dest = append(dest, &features[i])
	}
	dest = append(dest, &analysed, &mtime, &cueStart, &cueEnd)
	if err := scanner.Scan(dest...); err != nil {
		return track.Record{}, err
	}

	key, err := track.ParseID(file)
	if err != nil {
		return track.Record{}, fmt.Errorf("scan track: %w", err)
	}
	if cue, ok := key.(track.CueKey); ok {
		cue.Start = time.Duration(cueStart.Int64) * time.Millisecond
		cue.End = time.Duration(cueEnd.Int64) * time.Millisecond
		key = cue
	}

	rec := track.Record{
		Key: key,
		Metadata: track.Metadata{
			Title:       title.String,
			Artist:      artist.String,
			AlbumArtist: albumArtist.String,
			Album:       album.String,
			Genres:      track.SplitGenres(genre.String),
			Duration:    time.Duration(duration.Int64) * time.Second,
		},
		Ignored:  ignore.Int64 != 0,
		Analysed: analysed.Int64 != 0,
	}
	if mtime.Int64 > 0 {
		rec.ModTime = time.Unix(mtime.Int64, 0)
	}
	if rec.Analysed {
		for i, f := range features {
			rec.Vector[i] = f.Float64
		}
	}
	return rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func unixSeconds(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func cueRange(key track.Key) (start, end any) {
	cue, ok := key.(track.CueKey)
	if !ok {
		return nil, nil
	}
	return cue.Start.Milliseconds(), cue.End.Milliseconds()
}
