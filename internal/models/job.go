package models

import (
	"encoding/json"
	"math"
	"time"
)

// JobStatus is the lifecycle state of a [Job].
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusDownloading JobStatus = "downloading"
	StatusRunning     JobStatus = "running" // synthetic jobs such as the avatar refresh
	StatusPaused      JobStatus = "paused"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
)

// RefreshAvatarsJobID is the synthetic job key the server uses for the bulk avatar refresh.
const RefreshAvatarsJobID = "Refresh Avatars"

// MaxLogLines is the number of trailing log lines kept for display.
const MaxLogLines = 50

func (s JobStatus) String() string {
	return string(s)
}

// IsActive reports whether the job counts towards the active set of the status indicator.
func (s JobStatus) IsActive() bool {
	return s == StatusDownloading || s == StatusRunning
}

// IsTerminal reports whether the job has finished and will not report further progress.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanPause reports whether a pause request makes sense for the job.
func (s JobStatus) CanPause() bool {
	return s == StatusDownloading
}

// CanResume reports whether a resume request makes sense for the job.
func (s JobStatus) CanResume() bool {
	return s == StatusPaused
}

// Job is one background unit of work as listed by the collection endpoint.
type Job struct {
	ID              string
	Status          JobStatus
	Progress        int
	FilesDownloaded int
	TotalFiles      int // 0 when the total is unknown
	CurrentFile     string
	Logs            []string
	StartTime       time.Time
	EndTime         time.Time
}

// HasTotal reports whether the server knows how many files the job will produce.
func (j Job) HasTotal() bool {
	return j.TotalFiles > 0
}

// RecentLogs returns at most [MaxLogLines] trailing log lines.
func (j Job) RecentLogs() []string {
	return tail(j.Logs, MaxLogLines)
}

func parseJob(f fields) Job {
	job := Job{
		ID:              f.str("username"),
		Status:          JobStatus(f.str("status")),
		Progress:        f.integer("progress"),
		FilesDownloaded: f.integer("files_downloaded"),
		TotalFiles:      f.integer("total_files"),
		CurrentFile:     f.str("current_file"),
		Logs:            f.strs("logs"),
	}
	if job.ID == "" {
		job.ID = f.str("id")
	}
	if ts, ok := f.num("start_time"); ok && ts > 0 {
		job.StartTime = unixSeconds(ts)
	}
	if ts, ok := f.num("end_time"); ok && ts > 0 {
		job.EndTime = unixSeconds(ts)
	}
	return job
}

// UnmarshalJSON decodes the wire shape leniently.
func (j *Job) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	*j = parseJob(f)
	return nil
}

// MarshalJSON encodes the job in the wire shape used by the dashboard API.
func (j Job) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"id":               j.ID,
		"username":         j.ID,
		"status":           j.Status,
		"progress":         j.Progress,
		"files_downloaded": j.FilesDownloaded,
		"total_files":      j.TotalFiles,
		"current_file":     j.CurrentFile,
		"logs":             nonNil(j.Logs),
		"start_time":       toUnixSeconds(j.StartTime),
		"end_time":         nil,
	}
	if !j.EndTime.IsZero() {
		out["end_time"] = toUnixSeconds(j.EndTime)
	}
	return json.Marshal(out)
}

// Progress is the single-job snapshot returned by the detail endpoint.
//
// An unknown job comes back as an empty object and decodes to a Progress with an empty status.
type Progress struct {
	Status          JobStatus
	FilesDownloaded int
	TotalFiles      int
	CurrentFile     string
	Logs            []string
}

// RecentLogs returns at most [MaxLogLines] trailing log lines.
func (p Progress) RecentLogs() []string {
	return tail(p.Logs, MaxLogLines)
}

// UnmarshalJSON decodes the wire shape leniently.
func (p *Progress) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	*p = Progress{
		Status:          JobStatus(f.str("status")),
		FilesDownloaded: f.integer("files_downloaded"),
		TotalFiles:      f.integer("total_files"),
		CurrentFile:     f.str("current_file"),
		Logs:            f.strs("logs"),
	}
	return nil
}

// MarshalJSON encodes the progress in the wire shape used by the dashboard API.
func (p Progress) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"status":           p.Status,
		"files_downloaded": p.FilesDownloaded,
		"total_files":      p.TotalFiles,
		"current_file":     p.CurrentFile,
		"logs":             nonNil(p.Logs),
	})
}

// Collection is the full job collection plus the server's rollup counters.
type Collection struct {
	Jobs      []Job
	Total     int
	Active    int
	Completed int
	Failed    int
}

// UnmarshalJSON decodes the wire shape leniently.
func (c *Collection) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}

	objs := f.objects("downloads")
	jobs := make([]Job, 0, len(objs))
	for _, obj := range objs {
		jobs = append(jobs, parseJob(obj))
	}

	*c = Collection{
		Jobs:      jobs,
		Total:     f.integer("total_downloads"),
		Active:    f.integer("active_downloads"),
		Completed: f.integer("completed_downloads"),
		Failed:    f.integer("failed_downloads"),
	}
	return nil
}

// MarshalJSON encodes the collection in the wire shape used by the dashboard API.
func (c Collection) MarshalJSON() ([]byte, error) {
	jobs := c.Jobs
	if jobs == nil {
		jobs = []Job{}
	}
	return json.Marshal(map[string]any{
		"downloads":           jobs,
		"total_downloads":     c.Total,
		"active_downloads":    c.Active,
		"completed_downloads": c.Completed,
		"failed_downloads":    c.Failed,
	})
}

// ActiveJobs returns the jobs whose status is in the active set, in collection order.
func (c Collection) ActiveJobs() []Job {
	var active []Job
	for _, job := range c.Jobs {
		if job.Status.IsActive() {
			active = append(active, job)
		}
	}
	return active
}

// Find returns the job with the given id.
func (c Collection) Find(id string) (Job, bool) {
	for _, job := range c.Jobs {
		if job.ID == id {
			return job, true
		}
	}
	return Job{}, false
}

func unixSeconds(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*1e9))
}

func toUnixSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / 1e9
}

func tail(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
