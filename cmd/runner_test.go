package main

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/trackui/internal/models"
	"github.com/desertthunder/trackui/internal/services"
	"github.com/desertthunder/trackui/internal/shared"
	tu "github.com/desertthunder/trackui/internal/testing"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			client := services.NewDashboardClient(services.ClientOpts{BaseURL: "http://127.0.0.1:1"})
			clock := tu.NewFakeClock(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))

			runner := NewRunner(RunnerOpts{
				Config: config,
				Logger: logger,
				Output: output,
				Client: client,
				Now:    clock.Now,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.client != client {
				t.Error("expected client to be set")
			}
			if !runner.now().Equal(clock.Now()) {
				t.Error("expected clock to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Config: nil,
			})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Logger: nil,
			})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Output: nil,
			})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil client builds one from config", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Client: nil,
			})

			if runner.client == nil {
				t.Error("expected client to be built")
			}
		})

		t.Run("SetLogger rebuilds the client", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			before := runner.client
			logger := shared.NewLogger(io.Discard)

			runner.SetLogger(logger)

			if runner.logger != logger {
				t.Error("expected logger to be replaced")
			}
			if runner.client == before {
				t.Error("expected a new client bound to the new logger")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		two := 2
		tc := []struct {
			name    string
			data    any
			pretty  bool
			want    string
			wantErr string
		}{
			{
				name:   "pretty status",
				data:   statusOutput{State: "active", Label: "Downloading (2)...", Active: 2, Aggregate: 35, Badge: &two},
				pretty: true,
				want:   `"aggregate_percent": 35,`,
			},
			{
				name: "compact empty collection",
				data: models.Collection{},
				want: `{"active_downloads":0,"completed_downloads":0,"downloads":[],"failed_downloads":0,"total_downloads":0}` + "\n",
			},
			{name: "unmarshalable value", data: make(chan int), wantErr: "failed to marshal JSON"},
		}
		for _, c := range tc {
			t.Run(c.name, func(t *testing.T) {
				output := &bytes.Buffer{}
				runner := NewRunner(RunnerOpts{Output: output})

				err := runner.writeJSON(c.data, c.pretty)
				if c.wantErr != "" {
					if err == nil || !strings.Contains(err.Error(), c.wantErr) {
						t.Errorf("expected error containing %q, got %v", c.wantErr, err)
					}
					return
				}
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if c.pretty && !strings.Contains(output.String(), c.want) {
					t.Errorf("expected %s in output, got %s", c.want, output.String())
				}
				if !c.pretty && output.String() != c.want {
					t.Errorf("expected %q, got %q", c.want, output.String())
				}
			})
		}

		t.Run("output failures", func(t *testing.T) {
			limited := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			for name, w := range map[string]io.Writer{
				"failed to write output":  &tu.FWriter{},
				"failed to write newline": &limited,
			} {
				runner := NewRunner(RunnerOpts{Output: w})
				if err := runner.writeJSON(statusOutput{State: "ready"}, false); err == nil || !strings.Contains(err.Error(), name) {
					t.Errorf("expected %q, got %v", name, err)
				}
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writePlain("✓ Paused %s\n", "alice"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != "✓ Paused alice\n" {
			t.Errorf("expected formatted line, got %q", output.String())
		}

		runner = NewRunner(RunnerOpts{Output: &tu.FWriter{}})
		if err := runner.writePlain("Sync started..."); err == nil || !strings.Contains(err.Error(), "failed to write output") {
			t.Errorf("expected write error, got %v", err)
		}
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			if names[cmd.Name] {
				t.Errorf("command %q registered twice", cmd.Name)
			}
			names[cmd.Name] = true
		}

		for _, name := range []string{
			"setup", "status", "jobs", "watch", "pause", "resume", "clear", "sync",
			"avatars", "fetch", "download", "scheduler", "history", "mock", "open", "tui",
		} {
			if !names[name] {
				t.Errorf("expected command %q to be registered", name)
			}
		}
	})

	t.Run("writePlainln", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writePlainln("%d succeeded", 2); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != "\n2 succeeded\n" {
			t.Errorf("expected surrounding newlines, got %q", output.String())
		}
	})

	t.Run("writePlainHeader", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		runner.writePlainHeader("Scheduler")

		lines := strings.Split(strings.TrimSpace(output.String()), "\n")
		if len(lines) != 3 || lines[1] != "Scheduler" {
			t.Errorf("expected title between rules, got %q", output.String())
		}
	})
}
