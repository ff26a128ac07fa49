// Package scanner discovers audio tracks under the configured music roots.
//
// Walk yields descriptors lazily in lexical order, one per audio file or one
// per CUE entry when a matching single-FILE sheet sits beside the file.
// Directories containing a ".notmusic" marker are skipped with their whole
// subtree. Per-path failures are yielded as errors and the walk continues.
package scanner
