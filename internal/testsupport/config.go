package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/CDrummond/bliss-analyser/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.Music = []string{filepath.Join(base, "music")}
	cfgVal.Paths.DB = filepath.Join(base, "data", "bliss.db")
	cfgVal.Paths.Ignore = filepath.Join(base, "data", "ignore.txt")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Analysis.Workers = 2
	cfgVal.LMS.Timeout = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	for _, root := range builder.cfg.Paths.Music {
		if err := os.MkdirAll(root, 0o755); err != nil {
			t.Fatalf("mkdir music root: %v", err)
		}
	}
	return builder.cfg
}

// WithMusicRoots replaces the music roots with the named subdirectories of
// the test base directory.
func WithMusicRoots(names ...string) ConfigOption {
	return func(b *configBuilder) {
		roots := make([]string, 0, len(names))
		for _, name := range names {
			roots = append(roots, filepath.Join(b.baseDir, name))
		}
		b.cfg.Paths.Music = roots
	}
}

// WithKeepOld sets the keep-old analysis policy.
func WithKeepOld(keep bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Analysis.KeepOld = keep
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(filepath.Dir(cfg.Paths.DB))
}

// MusicRoot returns the first configured music root.
func MusicRoot(cfg *config.Config) string {
	if len(cfg.Paths.Music) == 0 {
		return ""
	}
	return cfg.Paths.Music[0]
}
