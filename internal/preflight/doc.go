// Package preflight verifies, before a run touches anything, that music
// folders are readable, the database directory is writable, and the decoding
// binaries are installed. A missing music folder is fatal, so failing early
// keeps the catalogue from being diffed against an incomplete scan.
package preflight
