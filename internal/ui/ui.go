package ui

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/trackui/internal/formatter"
	"github.com/desertthunder/trackui/internal/models"
	"github.com/desertthunder/trackui/internal/services"
	"github.com/desertthunder/trackui/internal/tasks"
	"github.com/desertthunder/trackui/internal/toast"
)

// Dashboard is the remote API driven by the TUI. [services.DashboardClient] implements it.
type Dashboard interface {
	Progress(ctx context.Context, id string) (models.Progress, error)
	Collection(ctx context.Context) (models.Collection, error)
	Snapshot(ctx context.Context) (services.Snapshot, error)
	Scheduler(ctx context.Context) (models.SchedulerStatus, error)
	Pause(ctx context.Context, id string) (models.ActionResult, error)
	Resume(ctx context.Context, id string) (models.ActionResult, error)
	ClearCompleted(ctx context.Context) (models.ActionResult, error)
	SyncAll(ctx context.Context) (models.ActionResult, error)
	RefreshAvatars(ctx context.Context) (models.ActionResult, error)
	DownloadUser(ctx context.Context, id string) (models.ActionResult, error)
	ExternalDownload(ctx context.Context, rawURL, destination string) (models.ActionResult, error)
}

var _ Dashboard = (*services.DashboardClient)(nil)

// Journal records the terminal jobs seen by the indicator poll.
type Journal interface {
	RecordCollection(c models.Collection, now time.Time) (int, error)
}

// Options configures a [Model]. Zero durations use the dashboard defaults.
type Options struct {
	DetailInterval     time.Duration // default 1s
	CollectionInterval time.Duration // default 2s
	IndicatorInterval  time.Duration // default 2s
	RequestTimeout     time.Duration // per poll or action request, 0 for none
	ToastDuration      time.Duration
	BulkRate           float64 // bulk pause/resume requests per second
	Clock              toast.Clock
	Journal            Journal // optional
	Logger             *log.Logger
}

// Model represents the TUI application state.
//
// Update is the only mutator. Fetches run as [tea.Cmd]s and their responses come
// back tagged with the [tasks.Ticket] they were issued for, so a response from a
// stopped or restarted loop is dropped.
type Model struct {
	ctx      context.Context
	client   Dashboard
	opts     Options
	logger   *log.Logger
	notifier *toast.Notifier
	resolver *tasks.Resolver
	tracker  *tasks.Tracker

	indicator  *tasks.Loop
	collection *tasks.Loop
	detail     *tasks.Loop

	stack    ModalStack
	sessions map[ModalID]*Session

	ind        tasks.Indicator
	jobs       []models.Job
	downloads  *tasks.CollectionView
	progress   *tasks.DetailView
	scheduler  *models.SchedulerStatus
	bulk       *bulkRun
	bulkStatus string
	busy       map[string]bool

	cursor    int
	filter    textinput.Model
	filtering bool
	inputs    []textinput.Model
	focus     int
	showHelp  bool

	bar    progress.Model
	spin   spinner.Model
	help   help.Model
	keys   keyMap
	width  int
	height int
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, client Dashboard, opts Options) *Model {
	if opts.DetailInterval <= 0 {
		opts.DetailInterval = time.Second
	}
	if opts.CollectionInterval <= 0 {
		opts.CollectionInterval = 2 * time.Second
	}
	if opts.IndicatorInterval <= 0 {
		opts.IndicatorInterval = 2 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	notifier := toast.NewNotifier(opts.Clock, opts.ToastDuration)

	filter := textinput.New()
	filter.Prompt = "/ "
	filter.Placeholder = "filter accounts"

	url := textinput.New()
	url.Prompt = "URL: "
	url.Placeholder = "https://..."
	dest := textinput.New()
	dest.Prompt = "Destination: "
	dest.Placeholder = "optional folder"

	return &Model{
		ctx:        ctx,
		client:     client,
		opts:       opts,
		logger:     logger,
		notifier:   notifier,
		resolver:   tasks.NewResolver(notifier),
		tracker:    tasks.NewTracker(),
		indicator:  tasks.NewLoop(tasks.IndicatorLoop, opts.IndicatorInterval),
		collection: tasks.NewLoop(tasks.CollectionLoop, opts.CollectionInterval),
		detail:     tasks.NewLoop(tasks.DetailLoop, opts.DetailInterval),
		sessions:   map[ModalID]*Session{},
		busy:       map[string]bool{},
		filter:     filter,
		inputs:     []textinput.Model{url, dest},
		bar:        progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		spin:       spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// Init starts the indicator poll, which runs for the lifetime of the program.
func (m *Model) Init() tea.Cmd {
	return m.startLoop(m.indicator)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.bar.Width = max(10, min(40, msg.Width/3))
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case tickMsg:
		return m, m.handleTick(msg)

	case snapshotMsg:
		return m, m.applySnapshot(msg)

	case collectionMsg:
		m.applyCollection(msg)
		return m, nil

	case progressMsg:
		m.applyProgress(msg)
		return m, nil

	case Msg:
		return m, m.handleResult(msg)

	case spinner.TickMsg:
		if !m.working() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m.updateInputs(msg)
}

// View renders the current state.
func (m *Model) View() string {
	return render(m.frame())
}

// Stack exposes the open modals, bottom first.
func (m *Model) Stack() []ModalEntry {
	return m.stack.Entries()
}

// Indicator returns the last resolved indicator.
func (m *Model) Indicator() tasks.Indicator {
	return m.ind
}

// Toasts returns the visible notices.
func (m *Model) Toasts() []toast.Toast {
	return m.notifier.Visible(m.notifier.Now())
}

// Session returns the session of an open modal.
func (m *Model) Session(id ModalID) (*Session, bool) {
	s, ok := m.sessions[id]
	return s, ok
}

// Open opens a modal. jobID names the job of the detail modal.
func (m *Model) Open(id ModalID, jobID string) tea.Cmd {
	if _, ok := m.stack.Open(id); !ok {
		return nil
	}

	var loop *tasks.Loop
	switch id {
	case ModalDownloads:
		loop = m.collection
	case ModalDetail:
		loop = m.detail
	}
	s := newSession(m.ctx, id, loop)
	s.JobID = jobID
	m.sessions[id] = s
	m.logger.Debug("modal opened", "modal", id, "job", jobID)

	switch id {
	case ModalDownloads:
		m.cursor = 0
		m.filter.Reset()
		m.downloads = nil
		return m.startLoop(loop)
	case ModalDetail:
		m.progress = nil
		m.tracker.ResetDetail()
		return m.startLoop(loop)
	case ModalExternal:
		m.focus = 0
		for i := range m.inputs {
			m.inputs[i].Reset()
			m.inputs[i].Blur()
		}
		return m.inputs[0].Focus()
	case ModalScheduler:
		m.scheduler = nil
		return m.fetchScheduler(s)
	}
	return nil
}

// Close closes one modal wherever it sits in the stack and tears down its session.
func (m *Model) Close(id ModalID) bool {
	if !m.stack.Close(id) {
		return false
	}
	m.teardown(id)
	return true
}

// CloseAll closes every modal and transient overlay, as Escape does.
func (m *Model) CloseAll() {
	for _, id := range m.stack.CloseAll() {
		m.teardown(id)
	}
	m.showHelp = false
}

func (m *Model) teardown(id ModalID) {
	if s, ok := m.sessions[id]; ok {
		s.teardown()
		delete(m.sessions, id)
	}
	m.logger.Debug("modal closed", "modal", id)

	switch id {
	case ModalDownloads:
		m.tracker.ResetCollection()
		m.downloads = nil
		m.jobs = nil
		m.filtering = false
		m.filter.Blur()
		m.bulkStatus = ""
	case ModalDetail:
		m.tracker.ResetDetail()
		m.progress = nil
	case ModalExternal:
		for i := range m.inputs {
			m.inputs[i].Blur()
		}
	case ModalScheduler:
		m.scheduler = nil
	}
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if key.Matches(msg, m.keys.escape) {
		m.CloseAll()
		return m, nil
	}

	top, hasTop := m.stack.Top()
	if hasTop && top.ID == ModalExternal {
		return m, m.handleExternalKeys(msg)
	}
	if m.filtering {
		return m, m.handleFilterKeys(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.help):
		m.showHelp = !m.showHelp
		return m, nil
	case key.Matches(msg, m.keys.dismiss):
		m.dismissToast()
		return m, nil
	case key.Matches(msg, m.keys.sync):
		return m, m.syncAll()
	case key.Matches(msg, m.keys.avatars):
		return m, m.act(opAvatars, m.client.RefreshAvatars)
	case key.Matches(msg, m.keys.downloads):
		return m, m.Open(ModalDownloads, "")
	case key.Matches(msg, m.keys.external):
		return m, m.Open(ModalExternal, "")
	case key.Matches(msg, m.keys.scheduler):
		return m, m.Open(ModalScheduler, "")
	}

	if !hasTop {
		return m, nil
	}
	switch top.ID {
	case ModalDownloads:
		return m, m.handleDownloadsKeys(msg)
	case ModalDetail:
		return m, m.handleDetailKeys(msg)
	}
	return m, nil
}

func (m *Model) handleDownloadsKeys(msg tea.KeyMsg) tea.Cmd {
	s := m.sessions[ModalDownloads]
	items := m.visible()

	switch {
	case key.Matches(msg, m.keys.up):
		m.cursor = max(0, m.cursor-1)
	case key.Matches(msg, m.keys.down):
		m.cursor = min(max(0, len(items)-1), m.cursor+1)
	case key.Matches(msg, m.keys.toggle):
		if row, ok := m.cursorRow(items); ok {
			s.Toggle(row.ID)
		}
	case key.Matches(msg, m.keys.enter):
		if row, ok := m.cursorRow(items); ok {
			return m.Open(ModalDetail, row.ID)
		}
	case key.Matches(msg, m.keys.pause):
		return m.control(tasks.PhasePause, m.targets(s, items, func(r tasks.Row) bool { return r.CanPause }))
	case key.Matches(msg, m.keys.resume):
		return m.control(tasks.PhaseResume, m.targets(s, items, func(r tasks.Row) bool { return r.CanResume }))
	case key.Matches(msg, m.keys.clear):
		return m.act(opClear, m.client.ClearCompleted)
	case key.Matches(msg, m.keys.download):
		if row, ok := m.cursorRow(items); ok {
			id := row.ID
			return m.act(opDownload, func(ctx context.Context) (models.ActionResult, error) {
				return m.client.DownloadUser(ctx, id)
			})
		}
	case key.Matches(msg, m.keys.filter):
		m.filtering = true
		return m.filter.Focus()
	}
	return nil
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) tea.Cmd {
	s := m.sessions[ModalDetail]
	if m.progress == nil {
		return nil
	}
	switch {
	case key.Matches(msg, m.keys.pause) && m.progress.Status.CanPause():
		return m.control(tasks.PhasePause, []string{s.JobID})
	case key.Matches(msg, m.keys.resume) && m.progress.Status.CanResume():
		return m.control(tasks.PhaseResume, []string{s.JobID})
	}
	return nil
}

func (m *Model) handleFilterKeys(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.enter) {
		m.filtering = false
		m.filter.Blur()
		return nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.cursor = 0
	return cmd
}

func (m *Model) handleExternalKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.tab):
		m.inputs[m.focus].Blur()
		m.focus = (m.focus + 1) % len(m.inputs)
		return m.inputs[m.focus].Focus()
	case key.Matches(msg, m.keys.enter):
		return m.submitExternal()
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return cmd
}

// updateInputs forwards non-key messages such as cursor blinks to the focused input.
func (m *Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.stack.IsOpen(ModalExternal):
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	case m.filtering:
		m.filter, cmd = m.filter.Update(msg)
	}
	return m, cmd
}

func (m *Model) dismissToast() {
	visible := m.Toasts()
	if len(visible) == 0 {
		return
	}
	m.notifier.Close(visible[len(visible)-1].ID)
}

func (m *Model) notify(message string, level toast.Level) {
	m.notifier.Notify(message, level, m.opts.ToastDuration)
}

// visible returns the downloads rows in filter order.
func (m *Model) visible() []jobItem {
	if m.downloads == nil {
		return nil
	}
	s := m.sessions[ModalDownloads]
	selected := func(string) bool { return false }
	if s != nil {
		selected = s.Selected
	}

	matches := formatter.Filter(m.jobs, m.filter.Value())
	order := make([]string, len(matches))
	for i, j := range matches {
		order[i] = j.ID
	}
	return visibleItems(m.downloads.Rows, order, m.cursor, selected)
}

func (m *Model) cursorRow(items []jobItem) (tasks.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(items) {
		return tasks.Row{}, false
	}
	return items[m.cursor].row, true
}

// targets picks the selection, or the cursor row when nothing is selected, keeping rows that allow the action.
func (m *Model) targets(s *Session, items []jobItem, allowed func(tasks.Row) bool) []string {
	var ids []string
	if sel := s.Selection(); len(sel) > 0 && m.downloads != nil {
		for _, row := range m.downloads.Rows {
			if s.Selected(row.ID) && allowed(row) {
				ids = append(ids, row.ID)
			}
		}
		return ids
	}
	if row, ok := m.cursorRow(items); ok && allowed(row) {
		ids = append(ids, row.ID)
	}
	return ids
}
