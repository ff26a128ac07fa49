// Package upload ships the catalogue database to the mixer running inside a
// Lyrion Music Server and controls the mixer process.
//
// The mixer plugin is driven through the server's JSON-RPC endpoint: a
// "start-upload" request makes it listen on a dedicated port, the database is
// PUT there, and a "stop" request makes it restart on the new file. Snapshots
// can additionally be archived to an S3-compatible bucket.
package upload
