package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/CDrummond/bliss-analyser/internal/services"
)

func TestParseProbeDuration(t *testing.T) {
	got, err := parseProbeDuration([]byte(`{"format":{"filename":"a.flac","duration":"245.500000"}}`))
	if err != nil {
		t.Fatalf("parseProbeDuration failed: %v", err)
	}
	if got != 245*time.Second+500*time.Millisecond {
		t.Fatalf("unexpected duration %v", got)
	}

	for _, input := range []string{`{"format":{}}`, `not json`, `{"format":{"duration":"0"}}`} {
		if _, err := parseProbeDuration([]byte(input)); !errors.Is(err, services.ErrDecode) {
			t.Fatalf("%s: expected ErrDecode, got %v", input, err)
		}
	}
}

func TestProbeRunsBinary(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "ffprobe")
	body := "#!/bin/sh\necho '{\"format\":{\"duration\":\"61.25\"}}'\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	got, err := NewProber(script).Probe(context.Background(), "/music/a.flac")
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if got != 61250*time.Millisecond {
		t.Fatalf("unexpected duration %v", got)
	}
}
