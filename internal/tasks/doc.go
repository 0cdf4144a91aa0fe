// Package tasks reconciles the dashboard's asynchronous job sources into display state.
//
// # Polling
//
// Every recurring poll is a [Loop]: a small state machine that hands out
// [Ticket] values and decides, when a response comes back, whether it may be
// applied. A loop that was stopped or restarted, or a response that arrives
// after a newer one, is discarded. The TUI drives loops from Bubble Tea tick
// messages; the CLI uses [Poller], which runs a loop on a ticker goroutine.
//
// Three loops exist per dashboard session:
//
//  1. [DetailLoop] : one job's progress, every second, stopped on a terminal status
//  2. [CollectionLoop] : the job list, every two seconds while it is open
//  3. [IndicatorLoop] : sync state and job list for the header, always on
//
// # Read models
//
// [Tracker] converts snapshots into [DetailView] and [CollectionView].
// Displayed percentages are clamped to [0, 100] and never decrease while a job
// keeps downloading.
//
// [Resolve] merges the collection and the sync state into one [Indicator]
// using a strict priority: timeout, running, active, ready. [Resolver] adds
// delivery of the slow-account notice through a deduplicating notifier.
//
// # Bulk control
//
// [RunBulk] pauses or resumes a selection of jobs with a rate-limited worker
// pool and reports [ProgressUpdate] values on a non-blocking channel.
package tasks
