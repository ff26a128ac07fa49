package audio

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/CDrummond/bliss-analyser/internal/services"
	"github.com/CDrummond/bliss-analyser/internal/track"
)

const (
	// SampleRate is the rate audio is resampled to before analysis.
	SampleRate = 22050
	// FrameSize is the analysis window length in samples.
	FrameSize = 2048
	// HopSize is the distance between successive windows.
	HopSize = 1024

	rolloffFraction = 0.85
	minBPM          = 60.0
	maxBPM          = 200.0
	tempoCeiling    = 206.0
	silenceDB       = -90.0
	chromaLowHz     = 65.0
	chromaHighHz    = 5000.0
	epsilon         = 1e-12
)

var (
	majorProfile = [12]float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorProfile = [12]float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

// Extract computes the feature vector of mono samples in [-1, 1].
func Extract(samples []float64, sampleRate int) (track.Vector, error) {
	var vec track.Vector
	if sampleRate <= 0 {
		return vec, fmt.Errorf("%w: invalid sample rate %d", services.ErrDecode, sampleRate)
	}
	if len(samples) < FrameSize {
		return vec, fmt.Errorf("%w: %d samples is shorter than one analysis frame", services.ErrDecode, len(samples))
	}

	nyquist := float64(sampleRate) / 2
	binHz := float64(sampleRate) / FrameSize
	nBins := FrameSize/2 + 1
	hann := window.Hann(FrameSize)

	var (
		centroids []float64
		rolloffs  []float64
		flatness  []float64
		loudness  []float64
		flux      []float64
		chroma    [12]float64
	)
	frame := make([]float64, FrameSize)
	mags := make([]float64, nBins)
	prev := make([]float64, nBins)

	for start := 0; start+FrameSize <= len(samples); start += HopSize {
		var sumSq float64
		for i := range frame {
			s := samples[start+i]
			sumSq += s * s
			frame[i] = s * hann[i]
		}
		loudness = append(loudness, toDB(math.Sqrt(sumSq/FrameSize)))

		spectrum := fft.FFTReal(frame)
		var total, weighted, power, logPower float64
		for k := 0; k < nBins; k++ {
			m := cmplx.Abs(spectrum[k])
			mags[k] = m
			total += m
			weighted += m * float64(k) * binHz
			p := m * m
			power += p
			logPower += math.Log(p + epsilon)
		}

		if total > epsilon {
			centroids = append(centroids, weighted/total)
		} else {
			centroids = append(centroids, 0)
		}

		rolloff := 0.0
		if power > epsilon {
			threshold := rolloffFraction * power
			var cum float64
			for k := 0; k < nBins; k++ {
				cum += mags[k] * mags[k]
				if cum >= threshold {
					rolloff = float64(k) * binHz
					break
				}
			}
		}
		rolloffs = append(rolloffs, rolloff)

		if power > epsilon {
			geometric := math.Exp(logPower / float64(nBins))
			arithmetic := power / float64(nBins)
			flatness = append(flatness, math.Min(geometric/arithmetic, 1))
		} else {
			flatness = append(flatness, 0)
		}

		for k := 1; k < nBins; k++ {
			hz := float64(k) * binHz
			if hz < chromaLowHz || hz > chromaHighHz {
				continue
			}
			chroma[pitchClass(hz)] += mags[k] * mags[k]
		}

		var f float64
		for k := range mags {
			if d := mags[k] - prev[k]; d > 0 {
				f += d
			}
		}
		flux = append(flux, f)
		copy(prev, mags)
	}

	bpm := estimateTempo(flux, float64(sampleRate)/HopSize)
	centroidMean, centroidStd := meanStd(centroids)
	rolloffMean, rolloffStd := meanStd(rolloffs)
	flatMean, flatStd := meanStd(flatness)
	loudMean, loudStd := meanStd(loudness)

	vec[0] = normalize(bpm, 0, tempoCeiling)
	vec[1] = normalize(zeroCrossingRate(samples), 0, 1)
	vec[2] = normalize(centroidMean, 0, nyquist)
	vec[3] = normalize(centroidStd, 0, nyquist/2)
	vec[4] = normalize(rolloffMean, 0, nyquist)
	vec[5] = normalize(rolloffStd, 0, nyquist/2)
	vec[6] = normalize(flatMean, 0, 1)
	vec[7] = normalize(flatStd, 0, 0.5)
	vec[8] = normalize(loudMean, silenceDB, 0)
	vec[9] = normalize(loudStd, 0, -silenceDB/2)
	chromaFeatures(chroma, vec[10:])

	return vec, vec.Validate()
}

// estimateTempo picks the onset autocorrelation peak between minBPM and
// maxBPM. Ties go to the faster tempo. It returns zero when no periodicity is
// found.
func estimateTempo(flux []float64, frameRate float64) float64 {
	n := len(flux)
	if n < 4 {
		return 0
	}
	mean, _ := meanStd(flux)
	x := make([]float64, n)
	for i, f := range flux {
		x[i] = f - mean
	}

	minLag := max(int(math.Floor(60*frameRate/maxBPM)), 1)
	maxLag := min(int(60*frameRate/minBPM), n-1)
	bestLag, best := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var s float64
		for i := lag; i < n; i++ {
			s += x[i] * x[i-lag]
		}
		s /= float64(n - lag)
		if s > best*(1+1e-9) {
			best, bestLag = s, lag
		}
	}
	if bestLag == 0 {
		return 0
	}
	return 60 * frameRate / float64(bestLag)
}

func zeroCrossingRate(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(samples)-1)
}

// chromaFeatures fills dst with six interval-class strengths, the best major
// and minor key correlations, the profile entropy and its peak.
func chromaFeatures(chroma [12]float64, dst []float64) {
	var total float64
	for _, c := range chroma {
		total += c
	}
	var profile [12]float64
	if total > epsilon {
		for i, c := range chroma {
			profile[i] = c / total
		}
	}

	for k := 1; k <= 6; k++ {
		var s float64
		for i := range profile {
			s += profile[i] * profile[(i+k)%12]
		}
		dst[k-1] = normalize(s, 0, 0.5)
	}
	dst[6] = bestKeyCorrelation(profile, majorProfile)
	dst[7] = bestKeyCorrelation(profile, minorProfile)

	var entropy, peak float64
	for _, p := range profile {
		if p > epsilon {
			entropy -= p * math.Log(p)
		}
		peak = math.Max(peak, p)
	}
	dst[8] = normalize(entropy/math.Log(12), 0, 1)
	dst[9] = normalize(peak, 0, 1)
}

func bestKeyCorrelation(profile, key [12]float64) float64 {
	best := -1.0
	for shift := range 12 {
		var rotated [12]float64
		for i := range key {
			rotated[(i+shift)%12] = key[i]
		}
		best = math.Max(best, pearson(profile[:], rotated[:]))
	}
	return best
}

func pearson(a, b []float64) float64 {
	ma, sa := meanStd(a)
	mb, sb := meanStd(b)
	if sa < epsilon || sb < epsilon {
		return 0
	}
	var s float64
	for i := range a {
		s += (a[i] - ma) * (b[i] - mb)
	}
	return clamp(s / (float64(len(a)) * sa * sb))
}

// pitchClass maps a frequency to 0 (C) through 11 (B).
func pitchClass(hz float64) int {
	midi := int(math.Round(12*math.Log2(hz/440))) + 69
	return ((midi % 12) + 12) % 12
}

func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return mean, math.Sqrt(variance / float64(len(values)))
}

func toDB(rms float64) float64 {
	if rms <= epsilon {
		return silenceDB
	}
	return math.Max(20*math.Log10(rms), silenceDB)
}

func normalize(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	return clamp(2*(v-lo)/(hi-lo) - 1)
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < -1:
		return -1
	case v > 1:
		return 1
	default:
		return v
	}
}
