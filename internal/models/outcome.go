package models

import "time"

// Outcome is the terminal state of one job run as observed by this client.
//
// A run is identified by its job id and start time; recording the same run twice keeps the first observation.
type Outcome struct {
	ID              string
	JobID           string
	Status          JobStatus
	FilesDownloaded int
	TotalFiles      int
	StartedAt       time.Time
	EndedAt         time.Time // zero when the server did not report an end time
	ObservedAt      time.Time
	LastLog         string
}

// NewOutcome captures the terminal state of job at observedAt.
//
// The last log line is kept for failed runs only.
func NewOutcome(job Job, observedAt time.Time) *Outcome {
	o := &Outcome{
		JobID:           job.ID,
		Status:          job.Status,
		FilesDownloaded: job.FilesDownloaded,
		TotalFiles:      job.TotalFiles,
		StartedAt:       job.StartTime,
		EndedAt:         job.EndTime,
		ObservedAt:      observedAt,
	}
	if job.Status == StatusFailed && len(job.Logs) > 0 {
		o.LastLog = job.Logs[len(job.Logs)-1]
	}
	return o
}

// Duration is the wall time of the run, or zero when either end is unknown.
func (o Outcome) Duration() time.Duration {
	if o.StartedAt.IsZero() || o.EndedAt.IsZero() || o.EndedAt.Before(o.StartedAt) {
		return 0
	}
	return o.EndedAt.Sub(o.StartedAt)
}
