// Package deps checks for the external binaries analysis shells out to.
package deps
