package upload

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/CDrummond/bliss-analyser/internal/config"
	"github.com/CDrummond/bliss-analyser/internal/services"
)

type recordingPutter struct {
	bucket, object, file string
	opts                 minio.PutObjectOptions
	err                  error
}

func (r *recordingPutter) FPutObject(_ context.Context, bucket, object, file string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	r.bucket, r.object, r.file, r.opts = bucket, object, file, opts
	return minio.UploadInfo{Bucket: bucket, Key: object}, r.err
}

func TestS3ArchiveObjectNames(t *testing.T) {
	putter := &recordingPutter{}
	archive := &S3Archive{
		client: putter,
		bucket: "backups",
		prefix: "/bliss/",
		now:    func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) },
	}
	object, err := archive.Archive(context.Background(), "/tmp/bliss.db")
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if !strings.HasPrefix(object, "bliss/20260304T050607Z-") || !strings.HasSuffix(object, ".db") {
		t.Fatalf("unexpected object name %s", object)
	}
	if putter.bucket != "backups" || putter.file != "/tmp/bliss.db" || putter.object != object {
		t.Fatalf("unexpected put %+v", putter)
	}

	putter.err = errors.New("access denied")
	if _, err := archive.Archive(context.Background(), "/tmp/bliss.db"); !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestNewS3ArchiveRequiresBucket(t *testing.T) {
	if _, err := NewS3Archive(config.Archive{Endpoint: "s3.local:9000"}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := NewS3Archive(config.Archive{Endpoint: "s3.local:9000", Bucket: "b", AccessKey: "a", SecretKey: "s"}); err != nil {
		t.Fatalf("NewS3Archive failed: %v", err)
	}
}
