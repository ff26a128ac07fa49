package tags

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.senan.xyz/taglib"

	"github.com/CDrummond/bliss-analyser/internal/services"
	"github.com/CDrummond/bliss-analyser/internal/track"
)

// DefaultDuration is assumed when a file's length cannot be read.
const DefaultDuration = 180 * time.Second

// TagLib reads and writes tags through taglib.
type TagLib struct {
	// VectorTag names the field holding a stored analysis vector.
	VectorTag string
}

// NewTagLib returns a TagLib using vectorTag for analysis vectors.
func NewTagLib(vectorTag string) *TagLib {
	return &TagLib{VectorTag: strings.ToUpper(strings.TrimSpace(vectorTag))}
}

// ReadMetadata returns the descriptive tags and duration of path.
func (t *TagLib) ReadMetadata(ctx context.Context, path string) (track.Metadata, error) {
	meta := track.Metadata{Duration: DefaultDuration}
	if err := ctx.Err(); err != nil {
		return meta, err
	}
	if _, err := os.Stat(path); err != nil {
		return meta, services.Wrap(services.ErrNotFound, "tags", "read", path, err)
	}
	values, err := taglib.ReadTags(path)
	if err != nil {
		return meta, services.Wrap(services.ErrDecode, "tags", "read", path, err)
	}
	meta.Title = firstTagValue(values, taglib.Title)
	meta.Artist = firstTagValue(values, taglib.Artist)
	meta.AlbumArtist = firstTagValue(values, taglib.AlbumArtist, "ALBUM ARTIST")
	meta.Album = firstTagValue(values, taglib.Album)
	for _, value := range values[taglib.Genre] {
		meta.Genres = append(meta.Genres, track.SplitGenres(value)...)
	}

	if props, err := taglib.ReadProperties(path); err == nil && props.Length > 0 {
		meta.Duration = props.Length.Truncate(time.Second)
	}
	return meta, nil
}

// ReadVector returns the analysis vector stored in the file's tags. The
// boolean is false when no usable vector is present.
func (t *TagLib) ReadVector(ctx context.Context, path string) (track.Vector, bool, error) {
	if err := ctx.Err(); err != nil {
		return track.Vector{}, false, err
	}
	if t.VectorTag == "" {
		return track.Vector{}, false, nil
	}
	values, err := taglib.ReadTags(path)
	if err != nil {
		return track.Vector{}, false, services.Wrap(services.ErrDecode, "tags", "read", path, err)
	}
	raw := firstTagValue(values, t.VectorTag)
	if raw == "" {
		return track.Vector{}, false, nil
	}
	vec, err := track.ParseVector(raw)
	if err != nil {
		return track.Vector{}, false, nil
	}
	return vec, true, nil
}

// WriteVector stores vec in the file's vector tag, leaving other tags intact.
func (t *TagLib) WriteVector(ctx context.Context, path string, vec track.Vector) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.VectorTag == "" {
		return fmt.Errorf("%w: vector tag name is empty", services.ErrConfiguration)
	}
	err := taglib.WriteTags(path, map[string][]string{t.VectorTag: {vec.String()}}, 0)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "tags", "write", path, err)
	}
	return nil
}

func firstTagValue(tags map[string][]string, keys ...string) string {
	for _, key := range keys {
		for _, value := range tags[key] {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}
