package ui

import (
	"fmt"
	"strings"

	"github.com/desertthunder/trackui/internal/models"
	"github.com/desertthunder/trackui/internal/shared"
	"github.com/desertthunder/trackui/internal/tasks"
	"github.com/desertthunder/trackui/internal/toast"
)

const detailLogLines = 10

// frame is everything one render needs. It is built by [Model.frame] and rendered by [render].
type frame struct {
	indicator tasks.Indicator
	syncBusy  bool
	spinner   string
	bar       func(percent float64) string

	modals []ModalEntry
	top    ModalID

	downloads  *tasks.CollectionView
	items      []jobItem
	query      string
	filtering  bool
	filterView string
	selected   int
	bulkStatus string

	detailJob string
	detail    *tasks.DetailView

	inputs       []string
	externalBusy bool

	scheduler *models.SchedulerStatus

	toasts []toast.Toast
	help   string
}

func (m *Model) frame() frame {
	f := frame{
		indicator:  m.ind,
		syncBusy:   m.busy[opSync],
		bar:        m.bar.ViewAs,
		modals:     m.stack.Entries(),
		downloads:  m.downloads,
		items:      m.visible(),
		query:      m.filter.Value(),
		filtering:  m.filtering,
		filterView: m.filter.View(),
		bulkStatus: m.bulkStatus,
		detail:     m.progress,
		scheduler:  m.scheduler,
		toasts:     m.Toasts(),
	}

	if m.working() {
		f.spinner = m.spin.View()
	}
	if top, ok := m.stack.Top(); ok {
		f.top = top.ID
		f.help = m.help.ShortHelpView(m.keys.modalKeys(top.ID))
	} else {
		f.help = m.help.ShortHelpView(m.keys.ShortHelp())
	}
	if m.showHelp {
		f.help = m.help.FullHelpView(m.keys.FullHelp())
	}

	if s, ok := m.sessions[ModalDownloads]; ok {
		f.selected = len(s.Selection())
	}
	if s, ok := m.sessions[ModalDetail]; ok {
		f.detailJob = s.JobID
	}
	if m.stack.IsOpen(ModalExternal) {
		for _, in := range m.inputs {
			f.inputs = append(f.inputs, in.View())
		}
		f.externalBusy = m.busy[opExternal]
	}
	return f
}

// render is a pure projection of f.
func render(f frame) string {
	var b strings.Builder
	b.WriteString(styles.title.Render("trackui"))
	b.WriteString("\n")
	b.WriteString(renderIndicator(f))

	if len(f.modals) > 0 {
		b.WriteString("\n\n")
		b.WriteString(renderBreadcrumb(f.modals))
		b.WriteString("\n")
		b.WriteString(styles.modal.Render(renderModal(f)))
	}

	if len(f.toasts) > 0 {
		b.WriteString("\n\n")
		b.WriteString(renderToasts(f.toasts))
	}

	b.WriteString("\n\n")
	b.WriteString(f.help)
	return b.String()
}

func renderIndicator(f frame) string {
	ind := f.indicator
	if ind.State == "" {
		return styles.muted.Render("Connecting...")
	}

	line := styles.state(ind.State).Render("● " + ind.Label)
	if ind.BadgeVisible {
		line += " " + styles.muted.Render(fmt.Sprintf("[%d]", ind.Badge))
	}

	label := "[s] " + ind.ActionLabel
	if f.syncBusy {
		line += "  " + styles.muted.Render(f.spinner+" "+label)
	} else if !ind.ActionEnabled {
		line += "  " + styles.muted.Render(label)
	} else {
		line += "  " + styles.info.Render(label)
	}

	if ind.Tooltip != "" {
		line += "\n" + styles.help.Render(ind.Tooltip)
	}
	if ind.ActiveCount > 0 && f.bar != nil {
		line += "\n" + f.bar(float64(ind.Aggregate)/100)
	}
	return line
}

func renderBreadcrumb(entries []ModalEntry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s (z%d)", e.ID, e.ZIndex())
	}
	return styles.muted.Render(strings.Join(parts, " › "))
}

func renderModal(f frame) string {
	switch f.top {
	case ModalDownloads:
		return renderDownloads(f)
	case ModalDetail:
		return renderDetail(f.detailJob, f.detail, f.bar)
	case ModalExternal:
		return renderExternal(f.inputs, f.externalBusy, f.spinner)
	case ModalScheduler:
		return renderScheduler(f.scheduler)
	}
	return ""
}

func renderDownloads(f frame) string {
	var b strings.Builder
	b.WriteString(styles.ok.Render("Downloads"))
	b.WriteString("\n")

	v := f.downloads
	if v == nil {
		b.WriteString(styles.muted.Render("Loading downloads..."))
		return b.String()
	}

	fmt.Fprintf(&b, "%d total • %d active • %d completed • %d failed", v.Total, v.Active, v.Completed, v.Failed)
	if f.selected > 0 {
		fmt.Fprintf(&b, " • %d selected", f.selected)
	}
	b.WriteString("\n")
	if f.filtering || f.query != "" {
		b.WriteString(f.filterView)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case v.Empty:
		b.WriteString(styles.help.Render(v.Message))
	case len(f.items) == 0:
		b.WriteString(styles.help.Render(fmt.Sprintf("No downloads match %q", f.query)))
	default:
		for i, it := range f.items {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(it.render())
		}
	}

	if f.bulkStatus != "" {
		b.WriteString("\n\n")
		b.WriteString(styles.warn.Render(f.bulkStatus))
	}
	return b.String()
}

func renderDetail(id string, v *tasks.DetailView, bar func(float64) string) string {
	var b strings.Builder
	b.WriteString(styles.ok.Render("Download: " + id))
	b.WriteString("\n")

	if v == nil {
		b.WriteString(styles.muted.Render("Loading progress..."))
		return b.String()
	}

	fmt.Fprintf(&b, "Status: %s\n", v.StatusText)
	if bar != nil {
		b.WriteString(bar(float64(v.Percent) / 100))
		b.WriteString("\n")
	}

	files := fmt.Sprintf("%d", v.Files)
	if v.Total > 0 {
		files = fmt.Sprintf("%d/%d", v.Files, v.Total)
	}
	fmt.Fprintf(&b, "Files: %s • Current: %s\n", files, shared.Truncate(v.CurrentFile, tasks.CurrentFileWidth))
	b.WriteString(styles.tone(v.Tone).Render(v.Text))

	if len(v.Logs) > 0 {
		b.WriteString("\n\n")
		b.WriteString(styles.muted.Render("Logs"))
		logs := v.Logs
		if len(logs) > detailLogLines {
			logs = logs[len(logs)-detailLogLines:]
		}
		for _, line := range logs {
			b.WriteString("\n  ")
			b.WriteString(line)
		}
	}
	return b.String()
}

func renderExternal(inputs []string, busy bool, spin string) string {
	var b strings.Builder
	b.WriteString(styles.ok.Render("External download"))
	for _, in := range inputs {
		b.WriteString("\n")
		b.WriteString(in)
	}
	if busy {
		b.WriteString("\n\n")
		b.WriteString(styles.muted.Render(spin + " Starting download..."))
	}
	return b.String()
}

func renderScheduler(s *models.SchedulerStatus) string {
	var b strings.Builder
	b.WriteString(styles.ok.Render("Scheduler"))
	b.WriteString("\n")

	if s == nil {
		b.WriteString(styles.muted.Render("Loading scheduler status..."))
		return b.String()
	}

	enabled := "disabled"
	if s.Enabled {
		enabled = "enabled"
	}
	if s.Running {
		enabled += ", running"
	}
	fmt.Fprintf(&b, "State: %s\n", enabled)
	fmt.Fprintf(&b, "Frequency: %s at %s\n", orDash(s.Frequency), orDash(s.Time))
	fmt.Fprintf(&b, "Last run: %s\n", orDash(s.LastRun))
	fmt.Fprintf(&b, "Next run: %s", orDash(s.NextRun))
	for _, line := range s.RecentLogs {
		b.WriteString("\n  ")
		b.WriteString(line)
	}
	return b.String()
}

func renderToasts(ts []toast.Toast) string {
	lines := make([]string, len(ts))
	for i, t := range ts {
		lines[i] = styles.level(t.Level).Render(t.Message)
	}
	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
