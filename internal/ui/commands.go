package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/trackui/internal/models"
	"github.com/desertthunder/trackui/internal/services"
	"github.com/desertthunder/trackui/internal/shared"
	"github.com/desertthunder/trackui/internal/tasks"
	"github.com/desertthunder/trackui/internal/toast"
)

const (
	opSync     = "sync"
	opAvatars  = "avatars"
	opClear    = "clear"
	opDownload = "download"
	opExternal = "external"
)

// actionText holds the notices of one user action.
type actionText struct {
	success  string // used when the server sends no message
	level    toast.Level
	declined string // server refused without a message
	failed   string // request never got an answer
}

var actionTexts = map[string]actionText{
	opSync:     {"Sync started...", toast.Info, "Failed to start sync", "Error starting sync"},
	opAvatars:  {"Avatar refresh started for all users...", toast.Info, "Failed to start avatar refresh", "Error starting avatar refresh"},
	opClear:    {"Completed downloads cleared", toast.Success, "Failed to clear downloads", "Error clearing downloads"},
	opDownload: {"Download started", toast.Success, "Failed to start download", "Error starting download"},
	opExternal: {"External download started! Check the Download Manager for progress.", toast.Success, "Failed to start download", "Error starting download"},
}

// bulkRun streams the progress of one bulk pause or resume.
type bulkRun struct {
	updates chan tasks.ProgressUpdate
	done    chan Msg
}

// startLoop (re)starts l and fires its first fetch immediately.
func (m *Model) startLoop(l *tasks.Loop) tea.Cmd {
	t := l.Start()
	m.logger.Debug("poll started", "ticket", t)
	return tea.Batch(m.fetch(t), schedule(l, t))
}

// schedule delivers the tick that follows t once the loop interval elapses.
func schedule(l *tasks.Loop, t tasks.Ticket) tea.Cmd {
	return tea.Tick(l.Interval(), func(time.Time) tea.Msg { return tickMsg{ticket: t} })
}

func (m *Model) loop(name string) *tasks.Loop {
	switch name {
	case tasks.IndicatorLoop:
		return m.indicator
	case tasks.CollectionLoop:
		return m.collection
	case tasks.DetailLoop:
		return m.detail
	}
	return nil
}

// handleTick fires the next fetch of a loop, unless it was stopped or restarted since.
func (m *Model) handleTick(msg tickMsg) tea.Cmd {
	l := m.loop(msg.ticket.Loop)
	if l == nil {
		return nil
	}
	next, ok := l.Next(msg.ticket)
	if !ok {
		return nil
	}
	return tea.Batch(m.fetch(next), schedule(l, next))
}

func (m *Model) fetch(t tasks.Ticket) tea.Cmd {
	switch t.Loop {
	case tasks.IndicatorLoop:
		return m.fetchSnapshot(t)
	case tasks.CollectionLoop:
		return m.fetchCollection(t)
	case tasks.DetailLoop:
		return m.fetchProgress(t)
	}
	return nil
}

func (m *Model) fetchSnapshot(t tasks.Ticket) tea.Cmd {
	client, parent, timeout := m.client, m.ctx, m.opts.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := withTimeout(parent, timeout)
		defer cancel()
		snap, err := client.Snapshot(ctx)
		return snapshotMsg{ticket: t, snap: snap, err: err}
	}
}

func (m *Model) fetchCollection(t tasks.Ticket) tea.Cmd {
	s, ok := m.sessions[ModalDownloads]
	if !ok {
		return nil
	}
	client, parent, timeout := m.client, s.Context(), m.opts.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := withTimeout(parent, timeout)
		defer cancel()
		c, err := client.Collection(ctx)
		return collectionMsg{ticket: t, collection: c, err: err}
	}
}

func (m *Model) fetchProgress(t tasks.Ticket) tea.Cmd {
	s, ok := m.sessions[ModalDetail]
	if !ok {
		return nil
	}
	client, parent, timeout, id := m.client, s.Context(), m.opts.RequestTimeout, s.JobID
	return func() tea.Msg {
		ctx, cancel := withTimeout(parent, timeout)
		defer cancel()
		p, err := client.Progress(ctx, id)
		return progressMsg{ticket: t, jobID: id, progress: p, err: err}
	}
}

func (m *Model) fetchScheduler(s *Session) tea.Cmd {
	client, parent, timeout := m.client, s.Context(), m.opts.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := withTimeout(parent, timeout)
		defer cancel()
		status, err := client.Scheduler(ctx)
		return schedulerFetchedMsg(s, status, err)
	}
}

// applySnapshot resolves the indicator from an accepted indicator response.
//
// Poll failures are logged and the loop keeps ticking.
func (m *Model) applySnapshot(msg snapshotMsg) tea.Cmd {
	if !m.indicator.Accept(msg.ticket) {
		m.logger.Debug("stale response dropped", "ticket", msg.ticket)
		return nil
	}
	if msg.err != nil {
		m.logger.Warn("indicator poll failed", "ticket", msg.ticket, "err", msg.err)
		return nil
	}

	now := m.notifier.Now()
	m.notifier.Prune(now)
	m.ind = m.resolver.Apply(msg.snap.Collection, msg.snap.Sync)

	if m.opts.Journal == nil {
		return nil
	}
	return record(m.opts.Journal, msg.snap.Collection, now)
}

// record journals the terminal jobs of c off the update loop.
func record(j Journal, c models.Collection, at time.Time) tea.Cmd {
	return func() tea.Msg {
		n, err := j.RecordCollection(c, at)
		return journaledMsg(n, err)
	}
}

func (m *Model) applyCollection(msg collectionMsg) {
	s, ok := m.sessions[ModalDownloads]
	if !ok || !m.collection.Accept(msg.ticket) {
		m.logger.Debug("stale response dropped", "ticket", msg.ticket)
		return
	}
	if msg.err != nil {
		m.logger.Warn("downloads poll failed", "ticket", msg.ticket, "err", msg.err)
		return
	}

	view := m.tracker.Collection(msg.collection)
	m.downloads = &view
	m.jobs = msg.collection.Jobs

	keep := make(map[string]bool, len(m.jobs))
	for _, j := range m.jobs {
		keep[j.ID] = true
	}
	s.Retain(keep)

	if n := len(m.visible()); m.cursor >= n {
		m.cursor = max(0, n-1)
	}
}

// applyProgress updates the detail view and stops its poll in the tick that reports a terminal status.
func (m *Model) applyProgress(msg progressMsg) {
	s, ok := m.sessions[ModalDetail]
	if !ok || s.JobID != msg.jobID || !m.detail.Accept(msg.ticket) {
		m.logger.Debug("stale response dropped", "ticket", msg.ticket)
		return
	}
	if msg.err != nil {
		m.logger.Warn("detail poll failed", "ticket", msg.ticket, "job", msg.jobID, "err", msg.err)
		return
	}

	view := m.tracker.Detail(msg.jobID, msg.progress)
	m.progress = &view
	if view.Terminal {
		m.detail.Stop()
		m.logger.Debug("detail poll stopped", "job", msg.jobID, "status", view.Status)
	}
}

func (m *Model) handleResult(msg Msg) tea.Cmd {
	switch msg.kind {
	case MsgActionDone:
		return m.finishAction(msg.data.(actionOutcome))
	case MsgBulkProgress:
		update := msg.data.(tasks.ProgressUpdate)
		m.bulkStatus = update.Message
		return waitForBulk(m.bulk)
	case MsgBulkDone:
		return m.finishBulk(msg.data.(bulkOutcome))
	case MsgJournaled:
		out := msg.data.(journalOutcome)
		if out.err != nil {
			m.logger.Error("failed to record outcomes", "err", out.err)
		} else if out.recorded > 0 {
			m.logger.Info("recorded outcomes", "count", out.recorded)
		}
	case MsgSchedulerFetched:
		out := msg.data.(schedulerOutcome)
		if m.sessions[ModalScheduler] != out.session {
			return nil
		}
		if out.err != nil {
			m.logger.Warn("scheduler fetch failed", "err", out.err)
			m.notify("Failed to load scheduler status", toast.Error)
			return nil
		}
		m.scheduler = &out.status
	}
	return nil
}

// act runs a one-shot action. The control stays disabled until the result arrives.
func (m *Model) act(op string, call func(ctx context.Context) (models.ActionResult, error)) tea.Cmd {
	if m.busy[op] {
		return nil
	}
	m.busy[op] = true

	parent, timeout := m.ctx, m.opts.RequestTimeout
	return tea.Batch(func() tea.Msg {
		ctx, cancel := withTimeout(parent, timeout)
		defer cancel()
		res, err := call(ctx)
		return actionDoneMsg(op, res, err)
	}, m.spin.Tick)
}

// working reports whether an action or bulk run is in flight. The spinner stops ticking once it is false.
func (m *Model) working() bool {
	return len(m.busy) > 0 || m.bulk != nil
}

func (m *Model) syncAll() tea.Cmd {
	if m.ind.State != "" && !m.ind.ActionEnabled {
		return nil
	}
	return m.act(opSync, m.client.SyncAll)
}

func (m *Model) submitExternal() tea.Cmd {
	rawURL := strings.TrimSpace(m.inputs[0].Value())
	dest := strings.TrimSpace(m.inputs[1].Value())
	if rawURL == "" {
		m.notify("Please enter a URL", toast.Error)
		return nil
	}
	if err := services.ValidateDownloadURL(rawURL); err != nil {
		m.notify("Please enter a valid URL", toast.Error)
		return nil
	}
	return m.act(opExternal, func(ctx context.Context) (models.ActionResult, error) {
		return m.client.ExternalDownload(ctx, rawURL, dest)
	})
}

func (m *Model) finishAction(out actionOutcome) tea.Cmd {
	delete(m.busy, out.op)
	text := actionTexts[out.op]

	if out.err != nil {
		m.logger.Error("action failed", "op", out.op, "err", out.err)
		m.notify(failureText(out.err, text.declined, text.failed), toast.Error)
		return nil
	}

	message := text.success
	if out.op == opDownload && out.result.Message != "" {
		message = out.result.Message
	}
	m.notify(message, text.level)

	switch out.op {
	case opSync:
		return m.startLoop(m.indicator)
	case opAvatars:
		m.notify("This may take a while depending on the number of users", toast.Info)
		return m.startLoop(m.indicator)
	case opExternal:
		m.Close(ModalExternal)
		return m.refresh()
	default:
		return m.refresh()
	}
}

// refresh restarts the visible polls so the result of an action shows without waiting a full interval.
// A detail poll that stopped on a terminal status stays stopped.
func (m *Model) refresh() tea.Cmd {
	cmds := []tea.Cmd{m.startLoop(m.indicator)}
	if m.stack.IsOpen(ModalDownloads) {
		cmds = append(cmds, m.startLoop(m.collection))
	}
	if m.stack.IsOpen(ModalDetail) && (m.progress == nil || !m.progress.Terminal) {
		cmds = append(cmds, m.startLoop(m.detail))
	}
	return tea.Batch(cmds...)
}

// control pauses or resumes ids through the bulk worker pool.
func (m *Model) control(phase tasks.Phase, ids []string) tea.Cmd {
	if len(ids) == 0 {
		m.notify(fmt.Sprintf("No downloads to %s", phase), toast.Warning)
		return nil
	}
	if m.bulk != nil {
		m.notify("Another action is still running", toast.Warning)
		return nil
	}

	client := m.client
	action := func(ctx context.Context, id string) error {
		_, err := client.Pause(ctx, id)
		return err
	}
	if phase == tasks.PhaseResume {
		action = func(ctx context.Context, id string) error {
			_, err := client.Resume(ctx, id)
			return err
		}
	}

	run := &bulkRun{
		updates: make(chan tasks.ProgressUpdate, len(ids)+1),
		done:    make(chan Msg, 1),
	}
	m.bulk = run

	ctx, opts := m.ctx, tasks.BulkOpts{RateLimit: m.opts.BulkRate}
	go func() {
		result, err := tasks.RunBulk(ctx, run.updates, phase, ids, action, opts)
		close(run.updates)
		run.done <- bulkDoneMsg(phase, ids, result, err)
	}()

	return waitForBulk(run)
}

func waitForBulk(run *bulkRun) tea.Cmd {
	if run == nil {
		return nil
	}
	return func() tea.Msg {
		update, ok := <-run.updates
		if !ok {
			return <-run.done
		}
		return bulkProgressMsg(update)
	}
}

func (m *Model) finishBulk(out bulkOutcome) tea.Cmd {
	m.bulk = nil
	m.bulkStatus = ""

	fallback := "Failed to pause"
	verb := "Paused"
	if out.phase == tasks.PhaseResume {
		fallback, verb = "Failed to resume", "Resuming"
	}

	switch {
	case out.err != nil && out.result == nil:
		m.logger.Error("bulk action failed", "phase", out.phase, "err", out.err)
		m.notify(fallback, toast.Error)
		return nil
	case len(out.ids) == 1 && out.result.Failed == 1:
		m.notify(failureText(out.result.Results[0].Err, fallback, fallback), toast.Error)
	case len(out.ids) == 1:
		m.notify(fmt.Sprintf("%s @%s", verb, out.ids[0]), toast.Info)
	case out.result.Failed > 0:
		m.notify(fmt.Sprintf("%s: %d of %d downloads", fallback, out.result.Failed, out.result.Total), toast.Error)
	default:
		m.notify(fmt.Sprintf("%s %d downloads", verb, out.result.Succeeded), toast.Info)
	}

	if s, ok := m.sessions[ModalDownloads]; ok && out.result.Failed == 0 {
		s.ClearSelection()
	}
	return m.refresh()
}

// failureText maps an action error to the notice shown to the user.
func failureText(err error, declined, failed string) string {
	var ae *services.ActionError
	if errors.As(err, &ae) || errors.Is(err, shared.ErrRateLimited) || errors.Is(err, shared.ErrInvalidInput) {
		return services.ErrorMessage(err, declined)
	}
	return failed
}

func withTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}
