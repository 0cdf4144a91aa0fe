package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/trackui/internal/models"
	"github.com/desertthunder/trackui/internal/shared"
	"github.com/desertthunder/trackui/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Pause pauses the given downloads, or every pausable one with --all.
func (r *Runner) Pause(ctx context.Context, cmd *cli.Command) error {
	ids, err := r.controlTargets(ctx, cmd, models.JobStatus.CanPause)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return r.writePlain("No downloads to pause\n")
	}
	return r.control(ctx, tasks.PhasePause, ids, func(ctx context.Context, id string) error {
		_, err := r.client.Pause(ctx, id)
		return err
	})
}

// Resume resumes the given downloads, or every paused one with --all.
func (r *Runner) Resume(ctx context.Context, cmd *cli.Command) error {
	ids, err := r.controlTargets(ctx, cmd, models.JobStatus.CanResume)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return r.writePlain("No downloads to resume\n")
	}
	return r.control(ctx, tasks.PhaseResume, ids, func(ctx context.Context, id string) error {
		_, err := r.client.Resume(ctx, id)
		return err
	})
}

// controlTargets returns the ids named on the command line, or with --all the jobs whose status passes allowed.
func (r *Runner) controlTargets(ctx context.Context, cmd *cli.Command, allowed func(models.JobStatus) bool) ([]string, error) {
	ids := cmd.Args().Slice()
	if !cmd.Bool("all") {
		if len(ids) == 0 {
			return nil, fmt.Errorf("%w: at least one job id or --all is required", shared.ErrMissingArgument)
		}
		return ids, nil
	}
	if len(ids) > 0 {
		return nil, fmt.Errorf("%w: cannot combine job ids with --all", shared.ErrInvalidArgument)
	}

	c, err := r.client.Collection(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch downloads: %w", err)
	}
	for _, job := range c.Jobs {
		if allowed(job.Status) {
			ids = append(ids, job.ID)
		}
	}
	return ids, nil
}

// control runs action over ids through the bulk worker pool and prints each step.
func (r *Runner) control(ctx context.Context, phase tasks.Phase, ids []string, action tasks.JobAction) error {
	r.logger.Info("bulk action", "phase", phase, "count", len(ids))

	progressCh := make(chan tasks.ProgressUpdate, len(ids)+1)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range progressCh {
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := tasks.RunBulk(ctx, progressCh, phase, ids, action, tasks.BulkOpts{
		RateLimit: r.config.Actions.RatePerSecond,
	})
	close(progressCh)
	<-printed

	if err != nil {
		return err
	}

	r.writePlainln("%d succeeded, %d failed", result.Succeeded, result.Failed)
	if result.Failed > 0 {
		return fmt.Errorf("%w: %d of %d downloads could not %s", shared.ErrActionFailed, result.Failed, result.Total, phase)
	}
	return nil
}

// act runs a one-shot action and prints success, or the server's reason on failure.
func (r *Runner) act(ctx context.Context, op, success string, call func(context.Context) (models.ActionResult, error)) error {
	res, err := call(ctx)
	if err != nil {
		r.logger.Error("action failed", "op", op, "error", err)
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	if res.Message != "" {
		success = res.Message
	}
	r.logger.Debug("action done", "op", op)
	return r.writePlain("✓ %s\n", success)
}

// Clear removes completed downloads from the server's list.
func (r *Runner) Clear(ctx context.Context, cmd *cli.Command) error {
	return r.act(ctx, "clear downloads", "Completed downloads cleared", r.client.ClearCompleted)
}

// Sync starts a sync of every account.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	return r.act(ctx, "start sync", "Sync started...", r.client.SyncAll)
}

// Avatars starts the avatar refresh job.
func (r *Runner) Avatars(ctx context.Context, cmd *cli.Command) error {
	if err := r.act(ctx, "start avatar refresh", "Avatar refresh started for all users...", r.client.RefreshAvatars); err != nil {
		return err
	}
	return r.writePlain("This may take a while depending on the number of users\n")
}

// Fetch starts a download from an external URL.
func (r *Runner) Fetch(ctx context.Context, cmd *cli.Command) error {
	rawURL := cmd.StringArg("url")
	if rawURL == "" {
		return fmt.Errorf("%w: url", shared.ErrMissingArgument)
	}
	dest := cmd.String("dest")

	res, err := r.client.ExternalDownload(ctx, rawURL, dest)
	if err != nil {
		return fmt.Errorf("failed to start download: %w", err)
	}

	r.writePlain("✓ External download started! Check the Download Manager for progress.\n")
	if res.DownloadID != "" {
		r.writePlain("Download ID: %s\n", res.DownloadID)
		r.writePlain("Follow it with: trackui watch %s\n", res.DownloadID)
	}
	return nil
}

// Download starts a download for one account.
func (r *Runner) Download(ctx context.Context, cmd *cli.Command) error {
	account := cmd.StringArg("account")
	if account == "" {
		return fmt.Errorf("%w: account", shared.ErrMissingArgument)
	}
	return r.act(ctx, "start download", "Download started for @"+account, func(ctx context.Context) (models.ActionResult, error) {
		return r.client.DownloadUser(ctx, account)
	})
}

// Open shows the web dashboard in the default browser.
func (r *Runner) Open(ctx context.Context, cmd *cli.Command) error {
	url := r.config.Server.BaseURL
	r.logger.Info("opening dashboard", "url", url)
	return shared.OpenBrowser(url)
}
