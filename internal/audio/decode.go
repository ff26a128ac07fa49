package audio

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"

	"github.com/CDrummond/bliss-analyser/internal/services"
)

// DecodeWAV reads a PCM WAV stream and returns mono samples in [-1, 1] along
// with the sample rate. Multi-channel input is averaged.
func DecodeWAV(r io.ReadSeeker) ([]float64, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("%w: not a valid wav stream", services.ErrDecode)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read pcm: %v", services.ErrDecode, err)
	}
	channels := int(dec.NumChans)
	if channels < 1 {
		return nil, 0, fmt.Errorf("%w: no channels", services.ErrDecode)
	}
	bitDepth := int(dec.BitDepth)
	if bitDepth < 8 || bitDepth > 32 {
		return nil, 0, fmt.Errorf("%w: unsupported bit depth %d", services.ErrDecode, bitDepth)
	}

	scale := float64(int64(1) << (bitDepth - 1))
	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := range frames {
		var sum float64
		for c := range channels {
			v := float64(buf.Data[i*channels+c])
			if bitDepth == 8 {
				// 8-bit WAV is unsigned.
				v -= 128
			}
			sum += v
		}
		samples[i] = sum / float64(channels) / scale
	}
	return samples, int(dec.SampleRate), nil
}

// DecodeWAVFile opens path and decodes it with DecodeWAV.
func DecodeWAVFile(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()
	return DecodeWAV(f)
}
