package tasks

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/desertthunder/trackui/internal/formatter"
	"github.com/desertthunder/trackui/internal/models"
	"github.com/desertthunder/trackui/internal/shared"
)

// CurrentFileWidth is the number of characters of the current file shown in collection rows.
const CurrentFileWidth = 30

// EmptyCollectionText is shown when the collection has no jobs.
const EmptyCollectionText = "No downloads yet"

// Tone classifies a text for styling.
type Tone int

const (
	ToneNeutral Tone = iota
	ToneSuccess
	ToneError
)

// DetailView is the display model of a single job.
type DetailView struct {
	JobID       string
	Status      models.JobStatus
	Percent     int
	Files       int
	Total       int
	CurrentFile string // "-" when unknown
	StatusText  string // "Unknown" when the job is unknown
	Text        string
	Tone        Tone
	Logs        []string
	Terminal    bool
}

// Row is one job line of the collection view.
type Row struct {
	ID          string
	Status      models.JobStatus
	Percent     int
	FilesText   string
	CurrentFile string
	StartTime   time.Time
	CanPause    bool
	CanResume   bool
}

// CollectionView is the display model of the job collection.
type CollectionView struct {
	Rows      []Row
	Empty     bool
	Message   string
	Total     int
	Active    int
	Completed int
	Failed    int
}

// DetailPercent computes the raw display percentage of a single-job snapshot, clamped to [0, 100].
//
// A known total gives the exact ratio; a running count without total is estimated
// at ten percent per file, capped at 90.
func DetailPercent(p models.Progress) int {
	switch {
	case p.TotalFiles > 0 && p.FilesDownloaded > 0:
		return shared.ClampPercent(int(math.Round(float64(p.FilesDownloaded) / float64(p.TotalFiles) * 100)))
	case p.Status == models.StatusDownloading && p.FilesDownloaded > 0:
		return shared.ClampPercent(min(p.FilesDownloaded*10, 90))
	default:
		return 0
	}
}

// DetailText renders the progress sentence of a single-job snapshot.
func DetailText(p models.Progress) (string, Tone) {
	switch p.Status {
	case models.StatusCompleted:
		n := p.TotalFiles
		if n == 0 {
			n = p.FilesDownloaded
		}
		return fmt.Sprintf("Download completed! Downloaded %d files.", n), ToneSuccess
	case models.StatusFailed:
		return "Download failed. Check logs for details.", ToneError
	case models.StatusDownloading:
		return fmt.Sprintf("Downloading... %d files downloaded", p.FilesDownloaded), ToneNeutral
	default:
		return "Preparing download...", ToneNeutral
	}
}

// floor is the lowest percentage a job may display while it keeps downloading.
type floor struct {
	key     string
	percent int
}

// Tracker turns poll snapshots into display models.
//
// Percentages never move backwards while a job stays in the downloading state
// across consecutive snapshots. Leaving that state resets the floor.
// Tracker is not safe for concurrent use.
type Tracker struct {
	detail floor
	rows   map[string]int
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{rows: map[string]int{}}
}

// Detail builds the view of job id from its latest snapshot.
func (t *Tracker) Detail(id string, p models.Progress) DetailView {
	percent := DetailPercent(p)
	if p.Status == models.StatusDownloading && t.detail.key == id {
		percent = max(percent, t.detail.percent)
	}
	if p.Status == models.StatusDownloading {
		t.detail = floor{key: id, percent: percent}
	} else {
		t.detail = floor{}
	}

	text, tone := DetailText(p)
	view := DetailView{
		JobID:       id,
		Status:      p.Status,
		Percent:     percent,
		Files:       p.FilesDownloaded,
		Total:       p.TotalFiles,
		CurrentFile: p.CurrentFile,
		StatusText:  p.Status.String(),
		Text:        text,
		Tone:        tone,
		Logs:        p.RecentLogs(),
		Terminal:    p.Status.IsTerminal(),
	}
	if view.CurrentFile == "" {
		view.CurrentFile = "-"
	}
	if view.StatusText == "" {
		view.StatusText = "Unknown"
	}
	return view
}

// ResetDetail forgets the detail floor, e.g. when the detail view closes.
func (t *Tracker) ResetDetail() {
	t.detail = floor{}
}

// Collection replaces the collection view with the snapshot c.
func (t *Tracker) Collection(c models.Collection) CollectionView {
	view := CollectionView{
		Total:     c.Total,
		Active:    c.Active,
		Completed: c.Completed,
		Failed:    c.Failed,
	}

	next := make(map[string]int, len(c.Jobs))
	for _, job := range c.Jobs {
		percent := shared.ClampPercent(job.Progress)
		if job.Status == models.StatusDownloading {
			key := rowKey(job)
			if prev, ok := t.rows[key]; ok {
				percent = max(percent, prev)
			}
			next[key] = percent
		}

		view.Rows = append(view.Rows, Row{
			ID:          job.ID,
			Status:      job.Status,
			Percent:     percent,
			FilesText:   formatter.FilesText(job),
			CurrentFile: shared.Truncate(job.CurrentFile, CurrentFileWidth),
			StartTime:   job.StartTime,
			CanPause:    job.Status.CanPause(),
			CanResume:   job.Status.CanResume(),
		})
	}
	t.rows = next

	if len(view.Rows) == 0 {
		view.Empty = true
		view.Message = EmptyCollectionText
	}
	return view
}

// ResetCollection forgets every row floor, e.g. when the downloads view closes.
func (t *Tracker) ResetCollection() {
	t.rows = map[string]int{}
}

// rowKey identifies one run of a job; a restarted job gets a new start time.
func rowKey(j models.Job) string {
	return j.ID + "@" + strconv.FormatInt(j.StartTime.UnixNano(), 10)
}
