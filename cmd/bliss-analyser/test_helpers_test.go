package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/CDrummond/bliss-analyser/internal/catalog"
	"github.com/CDrummond/bliss-analyser/internal/config"
	"github.com/CDrummond/bliss-analyser/internal/testsupport"
	"github.com/CDrummond/bliss-analyser/internal/track"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	cfg.Paths.LogDir = ""

	configPath := filepath.Join(base, "bliss-analyser.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	music := make([]string, 0, len(cfg.Paths.Music))
	for _, root := range cfg.Paths.Music {
		music = append(music, fmt.Sprintf("%q", root))
	}
	content := fmt.Sprintf(
		"[paths]\nmusic = [%s]\ndb = %q\nignore = %q\n\n[analysis]\nworkers = %d\n\n[lms]\ntimeout = %d\n",
		strings.Join(music, ", "),
		cfg.Paths.DB,
		cfg.Paths.Ignore,
		cfg.Analysis.Workers,
		cfg.LMS.Timeout,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// seedStore writes analysed rows and closes the store so the command under
// test can take the catalogue lock.
func seedStore(t *testing.T, cfg *config.Config, ids ...string) {
	t.Helper()
	store, err := catalog.Open(cfg.Paths.DB)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	defer store.Close()
	for _, id := range ids {
		testsupport.SeedTrack(t, store, track.FileKey{Path: id}, time.Now().Add(time.Hour))
	}
}

func loadRecord(t *testing.T, cfg *config.Config, id string) (track.Record, error) {
	t.Helper()
	store, err := catalog.Open(cfg.Paths.DB)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	defer store.Close()
	return store.Track(context.Background(), id)
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\noutput:\n%s", needle, haystack)
	}
}
