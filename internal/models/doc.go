// Package models defines the snapshot types exchanged with the remote dashboard API.
//
// Every type here is a point-in-time snapshot: the client replaces them wholesale on each poll response and never
// patches them from a diff.
//
//   - [Job] : one background unit of work (account download, avatar refresh, external fetch)
//   - [Progress] : single-job progress as reported by the detail endpoint
//   - [Collection] : the full, unordered job collection plus rollup counters
//   - [SyncState] : the global sync singleton
//   - [ActionResult] : the {success, error} envelope returned by job control and trigger endpoints
//   - [SchedulerStatus] : read-only view of the server's sync schedule
//   - [Outcome] : a terminal job run recorded in the local journal
//
// Decoding is lenient. A missing or malformed field decodes to its zero value instead of failing the whole response,
// so a poll loop never dies on a partially broken payload. Only syntactically invalid JSON is an error.
package models
