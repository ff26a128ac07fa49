package deps

// AnalysisRequirements lists the binaries the default analyzer executes.
// ffprobe is only needed for CUE sheets whose final track runs to the end of
// the file, so it is optional.
func AnalysisRequirements(ffmpeg, ffprobe string) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpeg,
			Description: "Required to decode audio for analysis",
		},
		{
			Name:        "FFprobe",
			Command:     ffprobe,
			Description: "Measures CUE parent durations when tags lack them",
			Optional:    true,
		},
	}
}
