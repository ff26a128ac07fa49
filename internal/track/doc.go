// Package track defines the identity and attribute types shared by the
// scanner, planner, analysis pool and catalogue store.
//
// A track is addressed by a Key, which is either a FileKey (a whole audio
// file) or a CueKey (a range of a parent file described by a CUE sheet).
// Paths inside keys are relative to the music root that holds them and always
// use forward slashes, matching the layout the downstream mixer expects.
package track
