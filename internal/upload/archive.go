package upload

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/CDrummond/bliss-analyser/internal/config"
	"github.com/CDrummond/bliss-analyser/internal/services"
)

// Archiver keeps copies of uploaded snapshots.
type Archiver interface {
	Archive(ctx context.Context, file string) (string, error)
}

// objectPutter is the subset of the minio client used for archiving.
type objectPutter interface {
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// S3Archive stores snapshots in an S3-compatible bucket.
type S3Archive struct {
	client objectPutter
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Archive builds an archive from configuration.
func NewS3Archive(cfg config.Archive) (*S3Archive, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" || strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("%w: archive endpoint and bucket are required", services.ErrConfiguration)
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create archive client: %w", err)
	}
	return &S3Archive{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, now: time.Now}, nil
}

// Archive uploads file under a unique, time-ordered object name and returns
// that name.
func (a *S3Archive) Archive(ctx context.Context, file string) (string, error) {
	object := a.objectName()
	_, err := a.client.FPutObject(ctx, a.bucket, object, file, minio.PutObjectOptions{
		ContentType: "application/vnd.sqlite3",
	})
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "archive", "put", object, err)
	}
	return object, nil
}

func (a *S3Archive) objectName() string {
	name := a.now().UTC().Format("20060102T150405Z") + "-" + uuid.NewString() + ".db"
	if prefix := strings.Trim(a.prefix, "/"); prefix != "" {
		return path.Join(prefix, name)
	}
	return name
}
