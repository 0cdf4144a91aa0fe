package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/trackui/internal/models"
	"github.com/desertthunder/trackui/internal/shared"
	tu "github.com/desertthunder/trackui/internal/testing"
	"github.com/urfave/cli/v3"
)

var start = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

var testJobs = models.Collection{
	Jobs: []models.Job{
		{ID: "alice", Status: models.StatusDownloading, Progress: 40, FilesDownloaded: 4, TotalFiles: 10},
		{ID: "bob", Status: models.StatusPaused, Progress: 10, FilesDownloaded: 1, TotalFiles: 10},
		{ID: "carol", Status: models.StatusCompleted, Progress: 100, FilesDownloaded: 7, TotalFiles: 7},
	},
	Total:     3,
	Active:    1,
	Completed: 1,
}

func newTestRunner(t *testing.T, srv *httptest.Server, clock *tu.FakeClock) (*Runner, *bytes.Buffer) {
	t.Helper()
	config := shared.DefaultConfig()
	config.Server.BaseURL = srv.URL
	config.Server.TimeoutMS = 1000
	config.Polling = shared.PollingConfig{DetailMS: 5, CollectionMS: 5, IndicatorMS: 5}
	config.Actions.RatePerSecond = 100
	config.Actions.Burst = 10
	config.Database.Path = filepath.Join(t.TempDir(), "trackui.db")

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: shared.NewLogger(io.Discard),
		Output: output,
		Now:    clock.Now,
	})
	return runner, output
}

func runCLI(ctx context.Context, r *Runner, args ...string) error {
	app := &cli.Command{
		Name:      "trackui",
		Commands:  r.register(),
		Writer:    io.Discard,
		ErrWriter: io.Discard,
	}
	return app.Run(ctx, append([]string{"trackui"}, args...))
}

func TestStatusCommand(t *testing.T) {
	t.Run("prints the resolved indicator", func(t *testing.T) {
		fd, srv := tu.NewFakeDashboard(t)
		fd.SetCollection(testJobs)
		fd.SetSync(models.SyncState{LastSync: "2024-05-01 09:00"})
		r, out := newTestRunner(t, srv, tu.NewFakeClock(start))

		if err := runCLI(t.Context(), r, "status"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		for _, want := range []string{"[active] Downloading (1)... 40% (1)", "Last sync: 2024-05-01 09:00"} {
			if !strings.Contains(out.String(), want) {
				t.Errorf("expected %q in output, got %q", want, out.String())
			}
		}
	})

	t.Run("json output", func(t *testing.T) {
		fd, srv := tu.NewFakeDashboard(t)
		fd.SetSync(models.SyncState{TimeoutUsers: []string{"dave"}})
		r, out := newTestRunner(t, srv, tu.NewFakeClock(start))

		if err := runCLI(t.Context(), r, "status", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		for _, want := range []string{`"state":"ready"`, `"label":"Ready (1 timeouts)"`, `"timeout_users":["dave"]`} {
			if !strings.Contains(out.String(), want) {
				t.Errorf("expected %s in output, got %s", want, out.String())
			}
		}
		if strings.Contains(out.String(), `"badge"`) {
			t.Errorf("expected no badge without jobs, got %s", out.String())
		}
	})

	t.Run("follow prints changes and notices once", func(t *testing.T) {
		fd, srv := tu.NewFakeDashboard(t)
		fd.SetSync(models.SyncState{Running: true, CurrentUser: "alice", CurrentTimeout: true})
		r, out := newTestRunner(t, srv, tu.NewFakeClock(start))

		ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
		defer cancel()
		if err := runCLI(ctx, r, "status", "--follow"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if n := strings.Count(out.String(), "Timeout: alice"); n != 1 {
			t.Errorf("expected one indicator line, got %d in %q", n, out.String())
		}
		if n := strings.Count(out.String(), "warning: alice is taking longer than expected"); n != 1 {
			t.Errorf("expected one notice, got %d in %q", n, out.String())
		}
		if len(fd.Calls()) < 2 {
			t.Errorf("expected repeated polls, got %v", fd.Calls())
		}
	})

	t.Run("follow logs output failures", func(t *testing.T) {
		fd, srv := tu.NewFakeDashboard(t)
		fd.SetCollection(testJobs)
		r, _ := newTestRunner(t, srv, tu.NewFakeClock(start))
		logs := &bytes.Buffer{}
		r.SetLogger(shared.NewLogger(logs))
		r.output = &tu.FWriter{}

		ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
		defer cancel()
		if err := runCLI(ctx, r, "status", "--follow", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if !strings.Contains(logs.String(), "failed to write status") {
			t.Errorf("expected the write failure logged, got %q", logs.String())
		}
	})
}

func TestJobsCommand(t *testing.T) {
	t.Run("filters accounts", func(t *testing.T) {
		fd, srv := tu.NewFakeDashboard(t)
		fd.SetCollection(testJobs)
		r, out := newTestRunner(t, srv, tu.NewFakeClock(start))

		if err := runCLI(t.Context(), r, "jobs", "--filter", "ali", "--format", "csv"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if !strings.Contains(out.String(), "alice") {
			t.Errorf("expected alice in output, got %q", out.String())
		}
		if strings.Contains(out.String(), "bob") || strings.Contains(out.String(), "carol") {
			t.Errorf("expected other accounts filtered out, got %q", out.String())
		}
	})

	t.Run("exports to a file", func(t *testing.T) {
		fd, srv := tu.NewFakeDashboard(t)
		fd.SetCollection(testJobs)
		r, out := newTestRunner(t, srv, tu.NewFakeClock(start))
		path := filepath.Join(t.TempDir(), "jobs.md")

		if err := runCLI(t.Context(), r, "jobs", "--format", "markdown", "--output", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, path)
		if !strings.Contains(tu.MustReadFile(t, path), "carol") {
			t.Error("expected export to contain every job")
		}
		if !strings.Contains(out.String(), "Exported 3 jobs") {
			t.Errorf("expected confirmation, got %q", out.String())
		}
	})

	t.Run("rejects unknown formats before fetching", func(t *testing.T) {
		fd, srv := tu.NewFakeDashboard(t)
		r, _ := newTestRunner(t, srv, tu.NewFakeClock(start))

		err := runCLI(t.Context(), r, "jobs", "--format", "xml")
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
		if len(fd.Calls()) != 0 {
			t.Errorf("expected no requests, got %v", fd.Calls())
		}
	})
}

func TestControlCommands(t *testing.T) {
	t.Run("pause several ids", func(t *testing.T) {
		fd, srv := tu.NewFakeDashboard(t)
		r, out := newTestRunner(t, srv, tu.NewFakeClock(start))

		if err := runCLI(t.Context(), r, "pause", "alice", "bob", "alice"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		calls := fd.Calls()
		slices.Sort(calls)
		want := []string{"POST /api/downloads/pause/alice", "POST /api/downloads/pause/bob"}
		if !slices.Equal(calls, want) {
			t.Errorf("expected %v, got %v", want, calls)
		}
		if !strings.Contains(out.String(), "2 succeeded, 0 failed") {
			t.Errorf("expected summary, got %q", out.String())
		}
	})

	t.Run("resume --all targets paused jobs", func(t *testing.T) {
		fd, srv := tu.NewFakeDashboard(t)
		fd.SetCollection(testJobs)
		r, _ := newTestRunner(t, srv, tu.NewFakeClock(start))

		if err := runCLI(t.Context(), r, "resume", "--all"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := []string{"GET /api/downloads/status", "POST /api/downloads/resume/bob"}
		if got := fd.Calls(); !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("requires ids", func(t *testing.T) {
		_, srv := tu.NewFakeDashboard(t)
		r, _ := newTestRunner(t, srv, tu.NewFakeClock(start))

		if err := runCLI(t.Context(), r, "pause"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if err := runCLI(t.Context(), r, "pause", "--all", "alice"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("declined pause fails with the server message", func(t *testing.T) {
		fd, srv := tu.NewFakeDashboard(t)
		fd.Result = models.ActionResult{Success: false, Error: "User not found"}
		r, out := newTestRunner(t, srv, tu.NewFakeClock(start))

		err := runCLI(t.Context(), r, "pause", "ghost")
		if !errors.Is(err, shared.ErrActionFailed) {
			t.Fatalf("expected ErrActionFailed, got %v", err)
		}
		if !strings.Contains(out.String(), "User not found") {
			t.Errorf("expected server message in output, got %q", out.String())
		}
	})
}

func TestActionCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		call string
		want string
	}{
		{"clear", []string{"clear"}, "POST /api/downloads/clear_completed", "✓ Completed downloads cleared"},
		{"sync", []string{"sync"}, "POST /api/sync_all", "✓ Sync started..."},
		{"avatars", []string{"avatars"}, "POST /api/refresh_all_avatars", "This may take a while"},
		{"download", []string{"download", "alice"}, "POST /api/download_user/alice", "✓ Download started for @alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fd, srv := tu.NewFakeDashboard(t)
			r, out := newTestRunner(t, srv, tu.NewFakeClock(start))

			if err := runCLI(t.Context(), r, tt.args...); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got := fd.Calls(); len(got) != 1 || got[0] != tt.call {
				t.Errorf("expected [%s], got %v", tt.call, got)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("expected %q in output, got %q", tt.want, out.String())
			}
		})
	}

	t.Run("server message replaces the default", func(t *testing.T) {
		fd, srv := tu.NewFakeDashboard(t)
		fd.Result = models.ActionResult{Success: true, Message: "Cleared 4 downloads"}
		r, out := newTestRunner(t, srv, tu.NewFakeClock(start))

		if err := runCLI(t.Context(), r, "clear"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out.String(), "Cleared 4 downloads") {
			t.Errorf("expected server message, got %q", out.String())
		}
	})

	t.Run("declined sync", func(t *testing.T) {
		fd, srv := tu.NewFakeDashboard(t)
		fd.Result = models.ActionResult{Success: false, Error: "Sync already in progress"}
		r, _ := newTestRunner(t, srv, tu.NewFakeClock(start))

		err := runCLI(t.Context(), r, "sync")
		if !errors.Is(err, shared.ErrActionFailed) || !strings.Contains(err.Error(), "Sync already in progress") {
			t.Errorf("expected declined sync error, got %v", err)
		}
	})

	t.Run("fetch sends url and destination", func(t *testing.T) {
		fd, srv := tu.NewFakeDashboard(t)
		fd.Result = models.ActionResult{Success: true, DownloadID: "ext_1"}
		r, out := newTestRunner(t, srv, tu.NewFakeClock(start))

		if err := runCLI(t.Context(), r, "fetch", "--dest", "inbox", "https://example.com/p/1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		bodies := fd.Bodies()
		if len(bodies) != 1 || !strings.Contains(bodies[0], `"url":"https://example.com/p/1"`) || !strings.Contains(bodies[0], `"destination":"inbox"`) {
			t.Errorf("expected url and destination in body, got %v", bodies)
		}
		if !strings.Contains(out.String(), "trackui watch ext_1") {
			t.Errorf("expected follow hint, got %q", out.String())
		}
	})

	t.Run("fetch rejects invalid urls locally", func(t *testing.T) {
		fd, srv := tu.NewFakeDashboard(t)
		r, _ := newTestRunner(t, srv, tu.NewFakeClock(start))

		for _, args := range [][]string{{"fetch"}, {"fetch", "ftp://example.com/x"}} {
			err := runCLI(t.Context(), r, args...)
			if !errors.Is(err, shared.ErrMissingArgument) && !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected input error for %v, got %v", args, err)
			}
		}
		if len(fd.Calls()) != 0 {
			t.Errorf("expected no requests, got %v", fd.Calls())
		}
	})

	t.Run("scheduler", func(t *testing.T) {
		fd, srv := tu.NewFakeDashboard(t)
		fd.SetScheduler(models.SchedulerStatus{
			Enabled:    true,
			Running:    true,
			Frequency:  "daily",
			Time:       "03:00",
			RecentLogs: []string{"sync finished"},
		})
		r, out := newTestRunner(t, srv, tu.NewFakeClock(start))

		if err := runCLI(t.Context(), r, "scheduler"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for _, want := range []string{"State:     enabled, running", "Frequency: daily at 03:00", "  sync finished"} {
			if !strings.Contains(out.String(), want) {
				t.Errorf("expected %q in output, got %q", want, out.String())
			}
		}
	})
}

func TestWatchCommand(t *testing.T) {
	t.Run("follows one job to completion", func(t *testing.T) {
		fd, srv := tu.NewFakeDashboard(t)
		fd.SetProgress("alice", models.Progress{Status: models.StatusCompleted, FilesDownloaded: 3, TotalFiles: 3})
		r, out := newTestRunner(t, srv, tu.NewFakeClock(start))

		if err := runCLI(t.Context(), r, "watch", "alice"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if !strings.Contains(out.String(), "✓ alice:") {
			t.Errorf("expected completion line, got %q", out.String())
		}
		n := len(fd.Calls())
		time.Sleep(30 * time.Millisecond)
		if got := len(fd.Calls()); got != n {
			t.Errorf("expected polling to stop after the terminal status, got %d more calls", got-n)
		}
	})

	t.Run("failed job exits non-zero", func(t *testing.T) {
		fd, srv := tu.NewFakeDashboard(t)
		fd.SetProgress("bob", models.Progress{Status: models.StatusFailed, Logs: []string{"boom"}})
		r, _ := newTestRunner(t, srv, tu.NewFakeClock(start))

		if err := runCLI(t.Context(), r, "watch", "bob"); !errors.Is(err, shared.ErrActionFailed) {
			t.Errorf("expected ErrActionFailed, got %v", err)
		}
	})

	t.Run("collection watch journals outcomes", func(t *testing.T) {
		fd, srv := tu.NewFakeDashboard(t)
		fd.SetCollection(testJobs)
		clock := tu.NewFakeClock(start)
		r, out := newTestRunner(t, srv, clock)

		ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
		defer cancel()
		if err := runCLI(ctx, r, "watch"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if n := strings.Count(out.String(), "carol"); n != 1 {
			t.Errorf("expected unchanged rows printed once, got %d in %q", n, out.String())
		}

		out.Reset()
		if err := runCLI(t.Context(), r, "history", "list", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out.String(), `"job_id":"carol"`) || strings.Contains(out.String(), `"job_id":"alice"`) {
			t.Errorf("expected only the completed job journaled, got %s", out.String())
		}
	})
}

func TestHistoryCommands(t *testing.T) {
	_, srv := tu.NewFakeDashboard(t)
	clock := tu.NewFakeClock(start)
	r, out := newTestRunner(t, srv, clock)

	repo, closeDB, err := r.openJournal()
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	c := models.Collection{Jobs: []models.Job{
		{ID: "carol", Status: models.StatusCompleted, FilesDownloaded: 7, TotalFiles: 7, StartTime: start.Add(-time.Minute), EndTime: start},
		{ID: "dave", Status: models.StatusFailed, FilesDownloaded: 2, Logs: []string{"rate limited"}},
	}}
	if _, err := repo.RecordCollection(c, start); err != nil {
		t.Fatalf("failed to seed journal: %v", err)
	}
	closeDB()

	t.Run("list", func(t *testing.T) {
		out.Reset()
		if err := runCLI(t.Context(), r, "history", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for _, want := range []string{"JOB", "carol", "7/7", "1m0s", "dave", "rate limited"} {
			if !strings.Contains(out.String(), want) {
				t.Errorf("expected %q in output, got %q", want, out.String())
			}
		}
	})

	t.Run("list by status", func(t *testing.T) {
		out.Reset()
		if err := runCLI(t.Context(), r, "history", "list", "--status", "failed", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if strings.Contains(out.String(), "carol") || !strings.Contains(out.String(), "dave") {
			t.Errorf("expected only failed outcomes, got %s", out.String())
		}

		if err := runCLI(t.Context(), r, "history", "list", "--status", "paused"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("stats", func(t *testing.T) {
		out.Reset()
		if err := runCLI(t.Context(), r, "history", "stats", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out.String(), `"completed":1`) || !strings.Contains(out.String(), `"failed":1`) {
			t.Errorf("expected one of each, got %s", out.String())
		}
	})

	t.Run("prune", func(t *testing.T) {
		out.Reset()
		if err := runCLI(t.Context(), r, "history", "prune", "--older-than", "1h"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out.String(), "Pruned 0 outcomes") {
			t.Errorf("expected nothing pruned yet, got %q", out.String())
		}

		clock.Advance(2 * time.Hour)
		out.Reset()
		if err := runCLI(t.Context(), r, "history", "prune", "--older-than", "1h"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out.String(), "Pruned 2 outcomes") {
			t.Errorf("expected both outcomes pruned, got %q", out.String())
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("config", func(t *testing.T) {
		_, srv := tu.NewFakeDashboard(t)
		r, _ := newTestRunner(t, srv, tu.NewFakeClock(start))
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := runCLI(t.Context(), r, "setup", "config", "--config", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, path)

		if err := runCLI(t.Context(), r, "setup", "config", "--config", path); err == nil {
			t.Error("expected error when the config already exists")
		}
	})

	t.Run("database", func(t *testing.T) {
		_, srv := tu.NewFakeDashboard(t)
		r, out := newTestRunner(t, srv, tu.NewFakeClock(start))
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		dbPath := filepath.Join(dir, "journal.db")
		config := fmt.Sprintf("[server]\nbase_url = %q\n\n[database]\npath = %q\n", srv.URL, dbPath)
		if err := os.WriteFile(path, []byte(config), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		if err := runCLI(t.Context(), r, "setup", "database", "--config", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, dbPath)

		out.Reset()
		if err := runCLI(t.Context(), r, "setup", "database", "--config", path, "--status"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out.String(), "0000  applied") || !strings.Contains(out.String(), "0001  applied") {
			t.Errorf("expected both migrations applied, got %q", out.String())
		}

		out.Reset()
		if err := runCLI(t.Context(), r, "setup", "database", "--config", path, "--rollback"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out.String(), "Rolled back") {
			t.Errorf("expected rollback confirmation, got %q", out.String())
		}
	})
}

func TestMockCommand(t *testing.T) {
	_, srv := tu.NewFakeDashboard(t)
	r, out := newTestRunner(t, srv, tu.NewFakeClock(start))

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	if err := runCLI(ctx, r, "mock", "--addr", "127.0.0.1:0", "--tick", "10ms"); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
	if !strings.Contains(out.String(), "Mock dashboard on http://127.0.0.1:0") {
		t.Errorf("expected startup banner, got %q", out.String())
	}

	if err := runCLI(t.Context(), r, "mock", "--tick", "0s"); err == nil {
		t.Error("expected error for a zero tick")
	}
}
