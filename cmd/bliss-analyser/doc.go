// Package main hosts the bliss-analyser CLI.
//
// Each subcommand maps onto one workflow: analyse scans the music folders,
// diffs them against the catalogue and runs the analysis pool; tags refreshes
// stored metadata from file tags; ignore applies the ignore file; upload and
// stopmixer talk to the mixer plugin on a Lyrion Music Server. Flags are
// turned into config overrides so that values in the config file still win.
package main
