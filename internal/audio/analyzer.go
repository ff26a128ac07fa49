package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/CDrummond/bliss-analyser/internal/services"
	"github.com/CDrummond/bliss-analyser/internal/track"
)

// Request selects the audio to analyse. End is zero to read to the end of
// the file.
type Request struct {
	Path  string
	Start time.Duration
	End   time.Duration
}

// FFmpegAnalyzer decodes audio with ffmpeg and extracts features in-process.
type FFmpegAnalyzer struct {
	Binary  string
	TempDir string
}

// NewFFmpegAnalyzer returns an analyzer running the given ffmpeg binary.
func NewFFmpegAnalyzer(binary string) *FFmpegAnalyzer {
	return &FFmpegAnalyzer{Binary: binary}
}

// Analyze computes the vector for req.
func (a *FFmpegAnalyzer) Analyze(ctx context.Context, req Request) (track.Vector, error) {
	if strings.TrimSpace(req.Path) == "" {
		return track.Vector{}, services.Wrap(services.ErrValidation, "audio", "analyze", "empty path", nil)
	}
	if _, err := os.Stat(req.Path); err != nil {
		return track.Vector{}, services.Wrap(services.ErrNotFound, "audio", "analyze", req.Path, err)
	}

	tmp, err := os.CreateTemp(a.TempDir, "bliss-*.wav")
	if err != nil {
		return track.Vector{}, fmt.Errorf("create temp wav: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpPath)

	if err := a.convert(ctx, req, tmpPath); err != nil {
		return track.Vector{}, err
	}

	samples, rate, err := DecodeWAVFile(tmpPath)
	if err != nil {
		return track.Vector{}, services.Wrap(services.ErrDecode, "audio", "decode", req.Path, err)
	}
	return Extract(samples, rate)
}

func (a *FFmpegAnalyzer) convert(ctx context.Context, req Request, dest string) error {
	binary := strings.TrimSpace(a.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, binary, ffmpegArgs(req, dest)...)
	detach(cmd)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	switch {
	case err == nil:
		return nil
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, "audio", "ffmpeg", req.Path, ctx.Err())
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return services.Wrap(services.ErrExternalTool, "audio", "ffmpeg", "binary not found", err)
	default:
		return services.Wrap(services.ErrDecode, "audio", "ffmpeg", strings.TrimSpace(stderr.String()), err)
	}
}

func ffmpegArgs(req Request, dest string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin", "-y"}
	if req.Start > 0 {
		args = append(args, "-ss", seconds(req.Start))
	}
	args = append(args, "-i", req.Path)
	if req.End > req.Start {
		args = append(args, "-t", seconds(req.End-req.Start))
	}
	return append(args,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(SampleRate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		dest,
	)
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
