package upload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/CDrummond/bliss-analyser/internal/logging"
)

// Snapshotter produces a consistent copy of the catalogue.
type Snapshotter interface {
	Snapshot(ctx context.Context, dest string) error
}

// Client coordinates uploads and mixer control.
type Client struct {
	dest      Destination
	transport Transport
	archive   Archiver
	logger    *slog.Logger
	tempDir   string
}

// Option configures a Client.
type Option func(*Client)

// WithArchive also stores every uploaded snapshot in archive.
func WithArchive(archive Archiver) Option {
	return func(c *Client) { c.archive = archive }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "upload")
		}
	}
}

// WithTempDir sets where snapshots are staged.
func WithTempDir(dir string) Option {
	return func(c *Client) { c.tempDir = dir }
}

// NewClient returns a client for dest.
func NewClient(dest Destination, transport Transport, opts ...Option) *Client {
	c := &Client{dest: dest, transport: transport, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result describes a completed upload.
type Result struct {
	Bytes int64
	// ArchiveObject is empty when archiving is disabled or failed.
	ArchiveObject string
}

// Upload snapshots the catalogue, sends it to the mixer and restarts the
// mixer on it. Archive failures are logged and do not fail the upload.
func (c *Client) Upload(ctx context.Context, store Snapshotter) (Result, error) {
	var res Result
	dir, err := os.MkdirTemp(c.tempDir, "bliss-upload-")
	if err != nil {
		return res, fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(dir)

	snapshot := filepath.Join(dir, "bliss.db")
	if err := store.Snapshot(ctx, snapshot); err != nil {
		return res, err
	}
	info, err := os.Stat(snapshot)
	if err != nil {
		return res, fmt.Errorf("stat snapshot: %w", err)
	}
	res.Bytes = info.Size()

	c.logger.Info("uploading database", logging.String("server", c.dest.String()), logging.Int64("bytes", res.Bytes))
	if err := c.transport.Send(ctx, c.dest, snapshot); err != nil {
		return res, err
	}
	c.logger.Info("database uploaded")

	if c.archive != nil {
		object, err := c.archive.Archive(ctx, snapshot)
		if err != nil {
			c.logger.Warn("archiving snapshot failed", logging.Error(err))
		} else {
			res.ArchiveObject = object
			c.logger.Info("snapshot archived", logging.String("object", object))
		}
	}

	if err := c.transport.Signal(ctx, c.dest, CommandStop); err != nil {
		return res, err
	}
	return res, nil
}

// StopMixer asks the plugin to stop the mixer.
func (c *Client) StopMixer(ctx context.Context) error {
	c.logger.Info("asking plugin to stop mixer", logging.String("server", c.dest.String()))
	return c.transport.Signal(ctx, c.dest, CommandStop)
}
