// Package history records build runs and the artifacts they produce in a
// local SQLite database.
//
// Each invocation of a build command writes a run row when it starts and
// updates it when it finishes. Artifacts are keyed by run and path and carry
// the content digest computed after the build, plus the object storage
// location once published.
//
// # Ordering
//
// Runs are listed newest first by their seq column, an autoincrement
// counter. Timestamps are informational only.
//
// # Database Configuration
//
//   - WAL mode: concurrent readers while a build writes
//   - synchronous=NORMAL
//   - 5-second busy timeout
//   - Foreign key enforcement
//   - Schema versioned through PRAGMA user_version
package history
