package testsupport

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	mkdirFor(t, path)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// WriteText writes content to path, creating parent directories.
func WriteText(t testing.TB, path, content string) {
	t.Helper()

	mkdirFor(t, path)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteCueSheet writes a single-FILE sheet for audio with one track per
// start offset.
func WriteCueSheet(t testing.TB, path, audioName string, starts ...time.Duration) {
	t.Helper()

	var b strings.Builder
	b.WriteString("PERFORMER \"Sheet Artist\"\n")
	b.WriteString("TITLE \"Sheet Album\"\n")
	b.WriteString("REM GENRE \"Jazz\"\n")
	b.WriteString("FILE \"" + audioName + "\" WAVE\n")
	for i, start := range starts {
		n := i + 1
		frames := start.Milliseconds() * 75 / 1000
		mm := frames / (75 * 60)
		ss := (frames / 75) % 60
		ff := frames % 75
		fmt.Fprintf(&b, "  TRACK %02d AUDIO\n", n)
		fmt.Fprintf(&b, "    TITLE \"Part %02d\"\n", n)
		fmt.Fprintf(&b, "    INDEX 01 %02d:%02d:%02d\n", mm, ss, ff)
	}
	WriteText(t, path, b.String())
}

// WriteTone writes a mono 16-bit WAV file holding a sine wave.
func WriteTone(t testing.TB, path string, freq float64, sampleRate int, length time.Duration) {
	t.Helper()

	mkdirFor(t, path)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	n := int(length.Seconds() * float64(sampleRate))
	data := make([]int, n)
	for i := range data {
		data[i] = int(math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)) * 0.6 * math.MaxInt16)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("finalize %s: %v", path, err)
	}
}

// Touch sets both access and modification time of path.
func Touch(t testing.TB, path string, mtime time.Time) {
	t.Helper()

	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func mkdirFor(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
}
