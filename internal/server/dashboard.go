package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trackui/internal/models"
	"github.com/desertthunder/trackui/internal/shared"
)

// SyncJobID is the synthetic queue entry of a sync run. It never appears in the collection.
const SyncJobID = "Sync All"

// maxQueue and keepFinished bound the queue the way the dashboard trims it on every status read.
const (
	maxQueue     = 20
	keepFinished = 10
)

// supportedHosts are the external download services the dashboard accepts.
var supportedHosts = map[string]string{
	"drive.google.com": "Google Drive",
	"docs.google.com":  "Google Drive",
	"gofile.io":        "GoFile",
	"bunkr.":           "Bunkr",
	"bunkrr.":          "Bunkr",
	"imgur.com":        "Imgur",
	"catbox.moe":       "Catbox",
	"redgifs.com":      "RedGifs",
}

// Account is a tracked account of the mock dashboard.
type Account struct {
	Name    string
	Files   int  // files one download produces
	Hidden  bool // the total is not reported while downloading
	Fail    bool // downloads fail half way
	Timeout int  // sync ticks spent timing out on this account
}

// DefaultAccounts is the account set served by `trackui mock`.
func DefaultAccounts() []Account {
	return []Account{
		{Name: "alice", Files: 12},
		{Name: "bob", Files: 8, Hidden: true},
		{Name: "carol", Files: 6, Fail: true},
		{Name: "dave", Files: 4, Timeout: 3},
		{Name: "erin", Files: 20},
	}
}

type entry struct {
	job    models.Job
	target int
	hidden bool
	fail   bool
	seq    int
	label  string // external downloads: service name
}

type syncRun struct {
	state models.SyncState
	index int
	wait  int
	logs  []string
}

// DashboardOpts configures a [Dashboard].
type DashboardOpts struct {
	Accounts []Account
	Now      func() time.Time
	Logger   *log.Logger
}

// Dashboard is an in-process simulation of the remote dashboard API.
//
// State only changes on requests and on [Dashboard.Step], so tests can drive it tick by tick.
type Dashboard struct {
	mu       sync.Mutex
	accounts []Account
	queue    []*entry
	active   map[string]*entry
	run      syncRun
	lastRun  time.Time
	seq      int
	now      func() time.Time
	logger   *log.Logger
}

// NewDashboard creates a dashboard with the given accounts.
func NewDashboard(opts DashboardOpts) *Dashboard {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Accounts == nil {
		opts.Accounts = DefaultAccounts()
	}
	return &Dashboard{
		accounts: opts.Accounts,
		active:   map[string]*entry{},
		now:      opts.Now,
		logger:   shared.WithLogger(opts.Logger, "component", "mock"),
	}
}

// Register mounts every dashboard endpoint on r.
func (d *Dashboard) Register(r Router) {
	r.Handle(http.MethodGet, "/api/download_progress/{id}", http.HandlerFunc(d.handleProgress))
	r.Handle(http.MethodGet, "/api/downloads/status", http.HandlerFunc(d.handleStatus))
	r.Handle(http.MethodGet, "/api/sync_status", http.HandlerFunc(d.handleSyncStatus))
	r.Handle(http.MethodGet, "/api/scheduler/status", http.HandlerFunc(d.handleScheduler))
	r.Handle(http.MethodPost, "/api/downloads/pause/{id}", http.HandlerFunc(d.handlePause))
	r.Handle(http.MethodPost, "/api/downloads/resume/{id}", http.HandlerFunc(d.handleResume))
	r.Handle(http.MethodPost, "/api/downloads/clear_completed", http.HandlerFunc(d.handleClear))
	r.Handle(http.MethodPost, "/api/download_user/{id}", http.HandlerFunc(d.handleDownload))
	r.Handle(http.MethodPost, "/api/sync_all", http.HandlerFunc(d.handleSyncAll))
	r.Handle(http.MethodPost, "/api/external_download", http.HandlerFunc(d.handleExternal))
	r.Handle(http.MethodPost, "/api/refresh_all_avatars", http.HandlerFunc(d.handleAvatars))
}

// Run advances the simulation every interval until ctx is done.
func (d *Dashboard) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Step()
		}
	}
}

// Step advances every queued job and the sync run by one tick.
func (d *Dashboard) Step() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for _, e := range d.queue {
		d.advance(e, now)
	}
	d.advanceSync(now)
}

// StartDownload queues a download for account name.
func (d *Dashboard) StartDownload(name string) models.ActionResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.startDownload(name)
}

// Snapshot returns the collection and sync state as the API would serve them.
func (d *Dashboard) Snapshot() (models.Collection, models.SyncState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.collection(), d.syncState()
}

func (d *Dashboard) account(name string) (Account, bool) {
	for _, a := range d.accounts {
		if a.Name == name {
			return a, true
		}
	}
	return Account{}, false
}

func (d *Dashboard) enqueue(id string, target int) *entry {
	d.seq++
	e := &entry{
		job: models.Job{
			ID:        id,
			Status:    models.StatusQueued,
			StartTime: d.now().Truncate(time.Millisecond),
		},
		target: target,
		seq:    d.seq,
	}
	d.queue = append(d.queue, e)
	d.active[id] = e
	return e
}

func (d *Dashboard) startDownload(name string) models.ActionResult {
	acct, ok := d.account(name)
	if !ok {
		return models.ActionResult{Error: "User not found"}
	}
	if e, ok := d.active[name]; ok && e.job.Status == models.StatusDownloading {
		return models.ActionResult{Error: "Download already in progress"}
	}

	e := d.enqueue(name, acct.Files)
	e.hidden = acct.Hidden
	e.fail = acct.Fail
	d.logger.Info("download queued", "account", name)
	return models.ActionResult{Success: true, Message: fmt.Sprintf("Download started for %s", name)}
}

func (d *Dashboard) advance(e *entry, now time.Time) {
	switch e.job.Status {
	case models.StatusQueued:
		if e.job.ID == models.RefreshAvatarsJobID {
			e.job.Status = models.StatusRunning
			e.job.CurrentFile = "Initializing..."
		} else {
			e.job.Status = models.StatusDownloading
			e.job.CurrentFile = "Preparing..."
		}
		e.job.TotalFiles = e.reportedTotal()
	case models.StatusDownloading, models.StatusRunning:
		if e.job.ID == SyncJobID {
			return
		}
		n := e.job.FilesDownloaded + 1
		e.job.FilesDownloaded = n

		if e.job.ID == models.RefreshAvatarsJobID {
			if n <= len(d.accounts) && n > 0 {
				e.job.CurrentFile = fmt.Sprintf("Checking %s...", d.accounts[n-1].Name)
			}
		} else {
			e.job.CurrentFile = fmt.Sprintf("%s_%04d.jpg", strings.ReplaceAll(e.job.ID, " ", "_"), n)
			e.job.Logs = append(e.job.Logs, "Downloaded "+e.job.CurrentFile)
		}

		switch {
		case e.fail && n*2 >= e.target:
			e.job.Logs = append(e.job.Logs, "ERROR: HTTP Error 403: Forbidden")
			d.finish(e, models.StatusFailed, now)
		case n >= e.target:
			d.finish(e, models.StatusCompleted, now)
		}
	}
	e.job.Progress = queueProgress(e.job)
}

func (e *entry) reportedTotal() int {
	if e.hidden {
		return 0
	}
	return e.target
}

func (d *Dashboard) finish(e *entry, status models.JobStatus, now time.Time) {
	e.job.Status = status
	e.job.EndTime = now
	switch {
	case e.job.ID == models.RefreshAvatarsJobID:
		e.job.FilesDownloaded = e.target
		e.job.TotalFiles = e.target
		e.job.CurrentFile = fmt.Sprintf("Completed (%d/%d refreshed)", e.target, e.target)
	case e.label != "":
		e.job.TotalFiles = e.job.FilesDownloaded
		e.job.CurrentFile = fmt.Sprintf("Downloaded %d files from %s", e.job.FilesDownloaded, e.label)
	case status == models.StatusCompleted:
		e.job.TotalFiles = e.target
		e.job.CurrentFile = ""
	}
	if d.active[e.job.ID] == e {
		delete(d.active, e.job.ID)
	}
	d.logger.Info("job finished", "id", e.job.ID, "status", status, "files", e.job.FilesDownloaded)
}

// queueProgress is the server-side percent: exact with a total, else five percent per file up to 95.
func queueProgress(j models.Job) int {
	switch {
	case j.Status == models.StatusCompleted:
		return 100
	case j.TotalFiles > 0:
		return j.FilesDownloaded * 100 / j.TotalFiles
	case j.FilesDownloaded > 0:
		return min(j.FilesDownloaded*5, 95)
	default:
		return j.Progress
	}
}

func (d *Dashboard) startSync() models.ActionResult {
	if d.run.state.Running {
		return models.ActionResult{Error: "Sync already in progress"}
	}
	d.run = syncRun{state: models.SyncState{Running: true, TimeoutCount: d.run.state.TimeoutCount}}
	e := d.enqueue(SyncJobID, len(d.accounts))
	e.job.Status = models.StatusDownloading
	e.job.TotalFiles = len(d.accounts)
	e.job.CurrentFile = "Preparing..."
	d.logger.Info("sync started", "accounts", len(d.accounts))
	return models.ActionResult{Success: true, Message: "Sync started"}
}

func (d *Dashboard) advanceSync(now time.Time) {
	run := &d.run
	if !run.state.Running {
		return
	}
	syncEntry := d.active[SyncJobID]

	if run.index >= len(d.accounts) {
		run.state.Running = false
		run.state.CurrentUser = ""
		run.state.CurrentTimeout = false
		run.logs = append(run.logs, "Sync completed")
		d.lastRun = now
		if syncEntry != nil {
			syncEntry.job.Logs = append([]string(nil), run.logs...)
			d.finish(syncEntry, models.StatusCompleted, now)
		}
		return
	}

	acct := d.accounts[run.index]
	run.state.CurrentUser = acct.Name
	if syncEntry != nil {
		syncEntry.job.CurrentFile = fmt.Sprintf("Syncing @%s", acct.Name)
	}

	if acct.Timeout > 0 && run.wait < acct.Timeout {
		run.state.CurrentTimeout = true
		run.wait++
		return
	}

	if acct.Timeout > 0 {
		run.state.TimeoutUsers = append(run.state.TimeoutUsers, acct.Name)
		run.state.TimeoutCount++
		run.logs = append(run.logs, fmt.Sprintf("Timeout: %s - request timed out", acct.Name))
	} else {
		run.logs = append(run.logs, fmt.Sprintf("%s: synced", acct.Name))
		if e, ok := d.active[acct.Name]; !ok || e.job.Status != models.StatusDownloading {
			d.startDownload(acct.Name)
		}
	}

	run.index++
	run.wait = 0
	run.state.CurrentTimeout = false
	if syncEntry != nil {
		syncEntry.job.FilesDownloaded = run.index
		syncEntry.job.Progress = queueProgress(syncEntry.job)
	}
}

func (d *Dashboard) syncState() models.SyncState {
	s := d.run.state
	s.TimeoutUsers = append([]string{}, s.TimeoutUsers...)
	if !d.lastRun.IsZero() {
		s.LastSync = d.lastRun.Format(time.RFC3339)
	}
	return s
}

// collection trims old finished jobs and returns every user-visible job, newest first.
func (d *Dashboard) collection() models.Collection {
	if len(d.queue) > maxQueue {
		var finished []*entry
		for _, e := range d.queue {
			if e.job.Status.IsTerminal() {
				finished = append(finished, e)
			}
		}
		if len(finished) > keepFinished {
			sort.SliceStable(finished, func(i, j int) bool {
				return finished[i].job.EndTime.After(finished[j].job.EndTime)
			})
			drop := map[*entry]bool{}
			for _, e := range finished[keepFinished:] {
				drop[e] = true
			}
			kept := d.queue[:0]
			for _, e := range d.queue {
				if !drop[e] {
					kept = append(kept, e)
				}
			}
			d.queue = kept
		}
	}

	var c models.Collection
	var visible []*entry
	for _, e := range d.queue {
		if e.job.ID != SyncJobID {
			visible = append(visible, e)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool { return visible[i].seq > visible[j].seq })

	for _, e := range visible {
		job := e.job
		job.Logs = append([]string{}, job.Logs...)
		c.Jobs = append(c.Jobs, job)
		switch {
		case job.Status.IsActive():
			c.Active++
		case job.Status == models.StatusCompleted:
			c.Completed++
		case job.Status == models.StatusFailed:
			c.Failed++
		}
	}
	c.Total = len(c.Jobs)
	return c
}

func (d *Dashboard) progress(id string) (models.Progress, bool) {
	var latest *entry
	for _, e := range d.queue {
		if e.job.ID == id && (latest == nil || e.seq > latest.seq) {
			latest = e
		}
	}
	if latest == nil {
		return models.Progress{}, false
	}
	return models.Progress{
		Status:          latest.job.Status,
		FilesDownloaded: latest.job.FilesDownloaded,
		TotalFiles:      latest.job.TotalFiles,
		CurrentFile:     latest.job.CurrentFile,
		Logs:            append([]string{}, latest.job.Logs...),
	}, true
}

func (d *Dashboard) scheduler() models.SchedulerStatus {
	now := d.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), 3, 0, 0, 0, now.Location())
	if !now.Before(next) {
		next = next.AddDate(0, 0, 1)
	}

	s := models.SchedulerStatus{
		Enabled:    true,
		Running:    true,
		Frequency:  "daily",
		Time:       "03:00",
		NextRun:    next.Format("2006-01-02 15:04:05"),
		RecentLogs: append([]string{}, d.run.logs...),
	}
	if len(s.RecentLogs) > 20 {
		s.RecentLogs = s.RecentLogs[len(s.RecentLogs)-20:]
	}
	if !d.lastRun.IsZero() {
		s.LastRun = d.lastRun.Format("2006-01-02 15:04:05")
	}
	return s
}

func (d *Dashboard) handleProgress(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	p, ok := d.progress(r.PathValue("id"))
	d.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (d *Dashboard) handleStatus(w http.ResponseWriter, _ *http.Request) {
	d.mu.Lock()
	c := d.collection()
	d.mu.Unlock()
	writeJSON(w, http.StatusOK, c)
}

func (d *Dashboard) handleSyncStatus(w http.ResponseWriter, _ *http.Request) {
	d.mu.Lock()
	s := d.syncState()
	d.mu.Unlock()
	writeJSON(w, http.StatusOK, s)
}

func (d *Dashboard) handleScheduler(w http.ResponseWriter, _ *http.Request) {
	d.mu.Lock()
	s := d.scheduler()
	d.mu.Unlock()
	writeJSON(w, http.StatusOK, s)
}

func (d *Dashboard) handlePause(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	d.mu.Lock()
	if e, ok := d.active[id]; ok && !e.job.Status.IsTerminal() {
		e.job.Status = models.StatusPaused
		d.logger.Info("download paused", "id", id)
	}
	d.mu.Unlock()

	writeJSON(w, http.StatusOK, models.ActionResult{Success: true, Message: "Pause requested"})
}

func (d *Dashboard) handleResume(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.account(id); !ok {
		writeJSON(w, http.StatusOK, models.ActionResult{Error: "User not found"})
		return
	}
	if e, ok := d.active[id]; ok && e.job.Status == models.StatusPaused {
		e.job.Status = models.StatusDownloading
	} else {
		d.startDownload(id)
	}
	d.logger.Info("download resumed", "id", id)
	writeJSON(w, http.StatusOK, models.ActionResult{Success: true, Message: "Resume started"})
}

func (d *Dashboard) handleClear(w http.ResponseWriter, _ *http.Request) {
	d.mu.Lock()
	kept := d.queue[:0]
	for _, e := range d.queue {
		if !e.job.Status.IsTerminal() || e.job.ID == SyncJobID {
			kept = append(kept, e)
		}
	}
	d.queue = kept
	d.mu.Unlock()

	writeJSON(w, http.StatusOK, models.ActionResult{Success: true, Message: "Completed downloads cleared"})
}

func (d *Dashboard) handleDownload(w http.ResponseWriter, r *http.Request) {
	res := d.StartDownload(r.PathValue("id"))
	writeJSON(w, http.StatusOK, res)
}

func (d *Dashboard) handleSyncAll(w http.ResponseWriter, _ *http.Request) {
	d.mu.Lock()
	res := d.startSync()
	d.mu.Unlock()
	writeJSON(w, http.StatusOK, res)
}

func (d *Dashboard) handleAvatars(w http.ResponseWriter, _ *http.Request) {
	d.mu.Lock()
	if _, running := d.active[models.RefreshAvatarsJobID]; running {
		d.logger.Info("avatar refresh already running")
	} else {
		d.enqueue(models.RefreshAvatarsJobID, len(d.accounts))
	}
	d.mu.Unlock()

	writeJSON(w, http.StatusOK, models.ActionResult{Success: true, Message: "Avatar refresh started for all users"})
}

func (d *Dashboard) handleExternal(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL         string `json:"url"`
		Destination string `json:"destination"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusOK, models.ActionResult{Error: "No data provided"})
		return
	}

	rawURL := strings.TrimSpace(body.URL)
	switch {
	case rawURL == "":
		writeJSON(w, http.StatusOK, models.ActionResult{Error: "URL is required"})
		return
	case !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://"):
		writeJSON(w, http.StatusOK, models.ActionResult{Error: "Invalid URL format"})
		return
	}

	service := externalService(rawURL)
	if service == "" {
		writeJSON(w, http.StatusOK, models.ActionResult{
			Error: "Unsupported service. Supported: Google Drive, GoFile, Bunkr, Imgur, Catbox, RedGifs",
		})
		return
	}

	d.mu.Lock()
	id := fmt.Sprintf("external_%d_%s", d.now().Unix(), strings.ReplaceAll(shared.GenerateID(), "-", "")[:8])
	e := d.enqueue(id, 5)
	e.hidden = true
	e.label = service
	d.mu.Unlock()

	d.logger.Info("external download queued", "id", id, "service", service, "destination", body.Destination)
	writeJSON(w, http.StatusOK, models.ActionResult{Success: true, Message: "External download started", DownloadID: id})
}

func externalService(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Host)
	for domain, name := range supportedHosts {
		if strings.Contains(host, domain) {
			return name
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
