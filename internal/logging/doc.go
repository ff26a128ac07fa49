// Package logging assembles the structured slog loggers used across
// bliss-analyser.
//
// It owns the console and JSON handlers, maps textual levels, and routes
// output to stderr and optional size-rotated log files. Components derive
// their loggers with NewComponentLogger so every line carries a component
// label, and long running loops throttle progress lines through
// ProgressSampler. A no-op logger is provided for tests and wiring code that
// cannot fail.
package logging
