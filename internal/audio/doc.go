// Package audio computes track feature vectors.
//
// FFmpegAnalyzer converts the requested range of a file to a temporary mono
// WAV with ffmpeg, decodes it and extracts a 20-dimension vector:
//
//   - tempo from onset autocorrelation
//   - zero-crossing rate
//   - mean and deviation of spectral centroid, rolloff, flatness and loudness
//   - ten features summarizing the chroma profile
//
// Every component is scaled to [-1, 1]. Probe reports file durations through
// ffprobe.
package audio
