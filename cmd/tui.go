package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/trackui/internal/shared"
	"github.com/desertthunder/trackui/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive dashboard.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Logging.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Logging.Level))
	r.SetLogger(fileLogger)

	opts := ui.Options{
		DetailInterval:     r.config.Polling.Detail(),
		CollectionInterval: r.config.Polling.Collection(),
		IndicatorInterval:  r.config.Polling.Indicator(),
		RequestTimeout:     r.config.Server.Timeout(),
		ToastDuration:      r.config.Toast.Duration(),
		BulkRate:           r.config.Actions.RatePerSecond,
		Logger:             fileLogger,
	}

	if !cmd.Bool("no-journal") {
		journal, closeDB, err := r.openJournal()
		if err != nil {
			fileLogger.Warn("journal unavailable, outcomes will not be recorded", "error", err)
		} else {
			defer closeDB()
			opts.Journal = journal
		}
	}

	model := ui.NewModel(ctx, r.client, opts)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
