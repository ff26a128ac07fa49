package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/CDrummond/bliss-analyser/internal/services"
)

// Prober reports durations with ffprobe.
type Prober struct {
	Binary string
}

// NewProber returns a prober running the given ffprobe binary.
func NewProber(binary string) *Prober {
	return &Prober{Binary: binary}
}

// Probe returns the container duration of path.
func (p *Prober) Probe(ctx context.Context, path string) (time.Duration, error) {
	binary := strings.TrimSpace(p.Binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, errors.New("ffprobe: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-of", "json", "--", path)
	detach(cmd)
	output, err := cmd.Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return 0, services.Wrap(services.ErrExternalTool, "audio", "ffprobe", "binary not found", err)
		}
		return 0, services.Wrap(services.ErrExternalTool, "audio", "ffprobe", path, err)
	}
	return parseProbeDuration(output)
}

func parseProbeDuration(output []byte) (time.Duration, error) {
	if !gjson.ValidBytes(output) {
		return 0, fmt.Errorf("%w: ffprobe returned invalid json", services.ErrDecode)
	}
	value := gjson.GetBytes(output, "format.duration")
	if !value.Exists() {
		return 0, fmt.Errorf("%w: ffprobe reported no duration", services.ErrDecode)
	}
	secs := value.Float()
	if secs <= 0 {
		return 0, fmt.Errorf("%w: ffprobe duration %q", services.ErrDecode, value.String())
	}
	return time.Duration(secs * float64(time.Second)), nil
}
