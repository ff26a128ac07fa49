// Package cue reads CUE sheets and expands them into per-track keys.
//
// Only the commands that describe track layout and album metadata are
// understood (TITLE, PERFORMER, REM GENRE, FILE, TRACK and INDEX); everything
// else is ignored. Sheets are decoded from UTF-8, UTF-16 with a byte order
// mark, or Windows-1252.
package cue
