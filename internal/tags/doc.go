// Package tags reads and writes audio file tags and keeps catalogue metadata
// in step with them.
package tags
