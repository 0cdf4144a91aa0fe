package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/desertthunder/trackui/internal/formatter"
	"github.com/desertthunder/trackui/internal/models"
	"github.com/desertthunder/trackui/internal/repositories"
	"github.com/desertthunder/trackui/internal/shared"
	"github.com/urfave/cli/v3"
)

type outcomeOutput struct {
	JobID      string    `json:"job_id"`
	Status     string    `json:"status"`
	Files      int       `json:"files_downloaded"`
	Total      int       `json:"total_files,omitempty"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	EndedAt    time.Time `json:"ended_at,omitzero"`
	ObservedAt time.Time `json:"observed_at"`
	LastLog    string    `json:"last_log,omitempty"`
}

type statsOutput struct {
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
	Files     int       `json:"files_downloaded"`
	Last      time.Time `json:"last_observed,omitzero"`
}

// HistoryList prints journaled outcomes, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	filter := repositories.OutcomeFilter{
		JobID: cmd.String("job"),
		Limit: int(cmd.Int("limit")),
	}
	if status := cmd.String("status"); status != "" {
		s := models.JobStatus(status)
		if !s.IsTerminal() {
			return fmt.Errorf("%w: status must be completed or failed, got %q", shared.ErrInvalidFlag, status)
		}
		filter.Status = s
	}
	if since := cmd.Duration("since"); since > 0 {
		filter.Since = r.now().Add(-since)
	}

	repo, closeDB, err := r.openJournal()
	if err != nil {
		return err
	}
	defer closeDB()

	outcomes, err := repo.List(filter)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out := make([]outcomeOutput, len(outcomes))
		for i, o := range outcomes {
			out[i] = outcomeOutput{
				JobID:      o.JobID,
				Status:     string(o.Status),
				Files:      o.FilesDownloaded,
				Total:      o.TotalFiles,
				StartedAt:  o.StartedAt,
				EndedAt:    o.EndedAt,
				ObservedAt: o.ObservedAt,
				LastLog:    o.LastLog,
			}
		}
		return r.writeJSON(out, cmd.Bool("pretty"))
	}

	if len(outcomes) == 0 {
		return r.writePlain("No outcomes recorded\n")
	}

	w := tabwriter.NewWriter(r.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JOB\tSTATUS\tFILES\tDURATION\tOBSERVED")
	for _, o := range outcomes {
		files := fmt.Sprintf("%d", o.FilesDownloaded)
		if o.TotalFiles > 0 {
			files = fmt.Sprintf("%d/%d", o.FilesDownloaded, o.TotalFiles)
		}
		duration := "-"
		if d := o.Duration(); d > 0 {
			duration = d.Round(time.Second).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", o.JobID, o.Status, files, duration, o.ObservedAt.Local().Format(formatter.TimeLayout))
		if o.LastLog != "" {
			fmt.Fprintf(w, "\t%s\t\t\t\n", shared.Truncate(o.LastLog, 60))
		}
	}
	return w.Flush()
}

// HistoryStats summarizes the journal.
func (r *Runner) HistoryStats(ctx context.Context, cmd *cli.Command) error {
	repo, closeDB, err := r.openJournal()
	if err != nil {
		return err
	}
	defer closeDB()

	stats, err := repo.Stats()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(statsOutput(stats), cmd.Bool("pretty"))
	}

	r.writePlainHeader("Outcome journal")
	r.writePlain("Completed: %d\n", stats.Completed)
	r.writePlain("Failed:    %d\n", stats.Failed)
	r.writePlain("Files:     %d\n", stats.Files)
	if !stats.Last.IsZero() {
		r.writePlain("Last seen: %s\n", stats.Last.Local().Format(formatter.TimeLayout))
	}
	return nil
}

// HistoryPrune deletes outcomes observed before the cutoff.
func (r *Runner) HistoryPrune(ctx context.Context, cmd *cli.Command) error {
	age := cmd.Duration("older-than")
	if age <= 0 {
		return fmt.Errorf("%w: --older-than must be positive", shared.ErrInvalidFlag)
	}

	repo, closeDB, err := r.openJournal()
	if err != nil {
		return err
	}
	defer closeDB()

	cutoff := r.now().Add(-age)
	n, err := repo.Prune(cutoff)
	if err != nil {
		return err
	}

	r.logger.Info("pruned outcomes", "count", n, "cutoff", cutoff)
	return r.writePlain("✓ Pruned %d outcomes\n", n)
}
