package audio

import (
	"errors"
	"math"
	"testing"

	"github.com/CDrummond/bliss-analyser/internal/services"
)

func sine(freq, amp float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/SampleRate)
	}
	return out
}

func TestExtractToneFeatures(t *testing.T) {
	vec, err := Extract(sine(440, 0.5, SampleRate*3), SampleRate)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	for i, v := range vec {
		if v < -1 || v > 1 {
			t.Fatalf("component %d out of range: %v", i, v)
		}
	}
	// 440 Hz against a 11025 Hz Nyquist sits near the bottom of the scale.
	if vec[2] > -0.8 {
		t.Fatalf("expected low spectral centroid, got %v", vec[2])
	}
	// A pure tone concentrates chroma in one pitch class.
	if vec[19] < 0.5 {
		t.Fatalf("expected strong chroma peak, got %v", vec[19])
	}
}

func TestExtractLoudnessOrdersByAmplitude(t *testing.T) {
	quiet, err := Extract(sine(220, 0.05, SampleRate), SampleRate)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	loud, err := Extract(sine(220, 0.8, SampleRate), SampleRate)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if loud[8] <= quiet[8] {
		t.Fatalf("expected louder mean loudness, got %v <= %v", loud[8], quiet[8])
	}
}

func TestExtractSilenceIsValid(t *testing.T) {
	vec, err := Extract(make([]float64, SampleRate), SampleRate)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if vec[8] != -1 {
		t.Fatalf("expected minimum loudness for silence, got %v", vec[8])
	}
}

func TestExtractRejectsShortInput(t *testing.T) {
	_, err := Extract(make([]float64, FrameSize-1), SampleRate)
	if !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if _, err := Extract(make([]float64, FrameSize), 0); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
}

func TestEstimateTempo(t *testing.T) {
	const frameRate = 20.0
	flux := make([]float64, 400)
	for i := 0; i < len(flux); i += 10 {
		flux[i] = 1
	}
	bpm := estimateTempo(flux, frameRate)
	if math.Abs(bpm-120) > 0.01 {
		t.Fatalf("expected 120 BPM, got %v", bpm)
	}
	if got := estimateTempo(make([]float64, 100), frameRate); got != 0 {
		t.Fatalf("expected 0 BPM for flat flux, got %v", got)
	}
}

func TestPitchClass(t *testing.T) {
	cases := map[float64]int{440: 9, 261.63: 0, 130.81: 0, 493.88: 11}
	for hz, want := range cases {
		if got := pitchClass(hz); got != want {
			t.Fatalf("pitchClass(%v) = %d, want %d", hz, got, want)
		}
	}
}

func TestZeroCrossingRate(t *testing.T) {
	if got := zeroCrossingRate([]float64{1, -1, 1, -1, 1}); got != 1 {
		t.Fatalf("expected 1, got %v", got)
	}
	if got := zeroCrossingRate([]float64{1, 1, 1}); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}
