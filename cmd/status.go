package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/trackui/internal/formatter"
	"github.com/desertthunder/trackui/internal/models"
	"github.com/desertthunder/trackui/internal/repositories"
	"github.com/desertthunder/trackui/internal/services"
	"github.com/desertthunder/trackui/internal/shared"
	"github.com/desertthunder/trackui/internal/tasks"
	"github.com/desertthunder/trackui/internal/toast"
	"github.com/urfave/cli/v3"
)

type statusOutput struct {
	State         string   `json:"state"`
	Label         string   `json:"label"`
	Tooltip       string   `json:"tooltip,omitempty"`
	Action        string   `json:"action"`
	ActionEnabled bool     `json:"action_enabled"`
	Active        int      `json:"active"`
	Aggregate     int      `json:"aggregate_percent"`
	Badge         *int     `json:"badge,omitempty"`
	TimeoutUsers  []string `json:"timeout_users,omitempty"`
	LastSync      string   `json:"last_sync,omitempty"`
}

func newStatusOutput(ind tasks.Indicator, s models.SyncState) statusOutput {
	out := statusOutput{
		State:         string(ind.State),
		Label:         ind.Label,
		Tooltip:       ind.Tooltip,
		Action:        ind.ActionLabel,
		ActionEnabled: ind.ActionEnabled,
		Active:        ind.ActiveCount,
		Aggregate:     ind.Aggregate,
		TimeoutUsers:  s.TimeoutUsers,
		LastSync:      s.LastSync,
	}
	if ind.BadgeVisible {
		badge := ind.Badge
		out.Badge = &badge
	}
	return out
}

// printNotifier prints a notice when it is raised and not already visible.
type printNotifier struct {
	r        *Runner
	notifier *toast.Notifier
}

func (p printNotifier) NotifyOnce(message string, level toast.Level, duration time.Duration) (toast.Toast, bool) {
	t, ok := p.notifier.NotifyOnce(message, level, duration)
	if ok {
		p.r.writePlain("%s %s: %s\n", p.r.stamp(), level, message)
	}
	return t, ok
}

func (r *Runner) stamp() string {
	return r.now().Format(time.TimeOnly)
}

// interruptible returns a context cancelled on SIGINT or SIGTERM.
func interruptible(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// Status prints the global status indicator.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("follow") {
		return r.followStatus(ctx, cmd.Bool("json"))
	}

	snap, err := r.client.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch status: %w", err)
	}

	ind := tasks.Resolve(snap.Collection, snap.Sync)
	if cmd.Bool("json") {
		return r.writeJSON(newStatusOutput(ind, snap.Sync), cmd.Bool("pretty"))
	}

	r.writePlain("%s\n", indicatorLine(ind))
	if ind.Tooltip != "" {
		r.writePlain("  %s\n", ind.Tooltip)
	}
	if snap.Sync.LastSync != "" {
		r.writePlain("  Last sync: %s\n", snap.Sync.LastSync)
	}
	return nil
}

func indicatorLine(ind tasks.Indicator) string {
	line := fmt.Sprintf("[%s] %s", ind.State, ind.Label)
	if ind.ActiveCount > 0 {
		line += fmt.Sprintf(" %d%%", ind.Aggregate)
	}
	if ind.BadgeVisible {
		line += fmt.Sprintf(" (%d)", ind.Badge)
	}
	return line
}

// followStatus prints the indicator whenever it changes until ctx is done.
func (r *Runner) followStatus(ctx context.Context, asJSON bool) error {
	ctx, stop := interruptible(ctx)
	defer stop()

	resolver := tasks.NewResolver(printNotifier{r: r, notifier: toast.NewNotifier(nil, r.config.Toast.Duration())})
	var last string
	poller := tasks.NewPoller(tasks.PollerOpts[services.Snapshot]{
		Name:     tasks.IndicatorLoop,
		Interval: r.config.Polling.Indicator(),
		Timeout:  r.config.Server.Timeout(),
		Fetch:    r.client.Snapshot,
		Apply: func(snap services.Snapshot) bool {
			ind := resolver.Apply(snap.Collection, snap.Sync)
			line := indicatorLine(ind)
			if line == last {
				return false
			}
			last = line
			var err error
			if asJSON {
				err = r.writeJSON(newStatusOutput(ind, snap.Sync), false)
			} else {
				err = r.writePlain("%s %s\n", r.stamp(), line)
			}
			if err != nil {
				r.logger.Warn("failed to write status", "error", err)
			}
			return false
		},
		Logger: r.logger,
	})

	poller.Start(ctx)
	poller.Wait()
	return nil
}

// Jobs lists the download collection, optionally filtered and exported.
func (r *Runner) Jobs(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	c, err := r.client.Collection(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch downloads: %w", err)
	}
	c.Jobs = formatter.Filter(c.Jobs, cmd.String("filter"))

	if cmd.Bool("json") {
		return r.writeJSON(c, cmd.Bool("pretty"))
	}

	if path := cmd.String("output"); path != "" {
		written, err := formatter.WriteExport(c, format, path)
		if err != nil {
			return err
		}
		r.logger.Info("exported jobs", "count", len(c.Jobs), "path", written)
		return r.writePlain("✓ Exported %d jobs to %s\n", len(c.Jobs), written)
	}

	data, err := formatter.Export(c, format)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// Scheduler prints the sync scheduler status.
func (r *Runner) Scheduler(ctx context.Context, cmd *cli.Command) error {
	s, err := r.client.Scheduler(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch scheduler status: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(s, cmd.Bool("pretty"))
	}

	state := "disabled"
	if s.Enabled {
		state = "enabled"
	}
	if s.Running {
		state += ", running"
	}

	r.writePlainHeader("Scheduler")
	r.writePlain("State:     %s\n", state)
	if s.Frequency != "" {
		r.writePlain("Frequency: %s at %s\n", s.Frequency, s.Time)
	}
	if s.LastRun != "" {
		r.writePlain("Last run:  %s\n", s.LastRun)
	}
	if s.NextRun != "" {
		r.writePlain("Next run:  %s\n", s.NextRun)
	}
	if len(s.RecentLogs) > 0 {
		r.writePlainln("Recent logs:")
		for _, line := range s.RecentLogs {
			r.writePlain("  %s\n", line)
		}
	}
	return nil
}

// Watch follows one job until it reaches a terminal status, or the whole collection until interrupted.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := interruptible(ctx)
	defer stop()

	if id := cmd.StringArg("id"); id != "" {
		return r.watchJob(ctx, id)
	}
	return r.watchAll(ctx, !cmd.Bool("no-journal"))
}

func (r *Runner) watchJob(ctx context.Context, id string) error {
	tracker := tasks.NewTracker()
	var final tasks.DetailView
	var last string

	poller := tasks.NewPoller(tasks.PollerOpts[models.Progress]{
		Name:     tasks.DetailLoop,
		Interval: r.config.Polling.Detail(),
		Timeout:  r.config.Server.Timeout(),
		Fetch: func(ctx context.Context) (models.Progress, error) {
			return r.client.Progress(ctx, id)
		},
		Apply: func(p models.Progress) bool {
			view := tracker.Detail(id, p)
			final = view

			line := fmt.Sprintf("%-11s %3d%%  %s", view.StatusText, view.Percent, view.Text)
			if view.CurrentFile != "-" {
				line += "  " + shared.Truncate(view.CurrentFile, tasks.CurrentFileWidth)
			}
			if line != last {
				last = line
				r.writePlain("%s %s\n", r.stamp(), line)
			}
			return view.Terminal
		},
		Logger: r.logger,
	})

	poller.Start(ctx)
	poller.Wait()

	if !final.Terminal {
		return nil
	}
	if final.Status == models.StatusFailed {
		return fmt.Errorf("%w: download %s failed", shared.ErrActionFailed, id)
	}
	return r.writePlain("✓ %s: %s\n", id, final.Text)
}

func (r *Runner) watchAll(ctx context.Context, journal bool) error {
	var repo *repositories.OutcomeRepository
	if journal {
		outcomes, closeDB, err := r.openJournal()
		if err != nil {
			r.logger.Warn("journal unavailable, outcomes will not be recorded", "error", err)
		} else {
			defer closeDB()
			repo = outcomes
		}
	}

	tracker := tasks.NewTracker()
	last := map[string]string{}

	poller := tasks.NewPoller(tasks.PollerOpts[models.Collection]{
		Name:     tasks.CollectionLoop,
		Interval: r.config.Polling.Collection(),
		Timeout:  r.config.Server.Timeout(),
		Fetch:    r.client.Collection,
		Apply: func(c models.Collection) bool {
			view := tracker.Collection(c)
			seen := make(map[string]bool, len(view.Rows))
			for _, row := range view.Rows {
				seen[row.ID] = true
				line := fmt.Sprintf("%-20s %-11s %3d%%  %s", row.ID, row.Status, row.Percent, row.FilesText)
				if last[row.ID] == line {
					continue
				}
				last[row.ID] = line
				r.writePlain("%s %s\n", r.stamp(), line)
			}
			for id := range last {
				if !seen[id] {
					delete(last, id)
				}
			}

			if repo != nil {
				n, err := repo.RecordCollection(c, r.now())
				if err != nil {
					r.logger.Warn("failed to record outcomes", "error", err)
				} else if n > 0 {
					r.logger.Info("recorded outcomes", "count", n)
				}
			}
			return false
		},
		Logger: r.logger,
	})

	poller.Start(ctx)
	poller.Wait()
	return nil
}
