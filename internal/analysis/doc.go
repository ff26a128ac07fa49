// Package analysis runs the bounded worker pool that computes feature vectors
// for newly discovered tracks and commits them to the catalogue.
//
// Cancellation is cooperative: workers check the run context before taking a
// job, while a job that has started finishes and commits on a detached
// context. Failures are kept in capped logs so a run over a large library
// stays bounded in memory while the totals remain exact.
package analysis
