// Package catalog persists the track catalogue in SQLite.
//
// The Store owns the database connection, applies embedded migrations, and
// exposes per-track atomic mutations (upsert, delete, metadata refresh,
// ignore flags) plus the full-scan read used by planning, tag
// synchronization and upload. Writers are serialized inside the Store while
// readers proceed concurrently, and an advisory lock file beside the database
// keeps a second process from writing to it at the same time.
//
// The Tracks table keeps the column layout the mixer reads, so the database
// file doubles as the upload payload. Schema additions go into a new
// migrations/NNN_name.sql file; the applied version is kept in SQLite's
// user_version field. Never edit an applied step.
package catalog
