// Package repositories implements SQLite persistence for the outcome journal.
//
// The dashboard itself owns every job; this client only keeps a local record of the terminal states it has
// observed so that `trackui history` can answer "what finished while I was watching" after the server has
// cleared its completed list.
//
// Key Implementations:
//   - [OutcomeRepository] : append-only journal of finished runs, deduplicated per (job, start time)
//
// Schema is managed by the migrations in the shared package.
package repositories
