// Package services defines shared utilities consumed by the wrappers around
// external collaborators (ffmpeg, ffprobe, the mixer's HTTP endpoints).
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper so failures keep their
//     class (decode, tool, timeout, transport) through wrapping.
//   - Kind, which turns those markers into the short labels shown in
//     per-track failure reports.
//   - Context helpers that carry the per-invocation run identifier.
package services
