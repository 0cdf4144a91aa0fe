package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trackui/internal/repositories"
	"github.com/desertthunder/trackui/internal/services"
	"github.com/desertthunder/trackui/internal/shared"
	"github.com/urfave/cli/v3"
)

// readRetries is the number of retries for failed GET requests.
const readRetries = 2

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	client *services.DashboardClient
	logger *log.Logger
	output io.Writer
	now    func() time.Time
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Client *services.DashboardClient // built from Config when nil
	Logger *log.Logger
	Output io.Writer
	Now    func() time.Time
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Client == nil {
		opts.Client = newClient(opts.Config, opts.Logger)
	}

	return &Runner{
		config: opts.Config,
		client: opts.Client,
		logger: opts.Logger,
		output: opts.Output,
		now:    opts.Now,
	}
}

func newClient(config *shared.Config, logger *log.Logger) *services.DashboardClient {
	return services.NewDashboardClient(services.ClientOpts{
		BaseURL:       config.Server.BaseURL,
		Timeout:       config.Server.Timeout(),
		RetryCount:    readRetries,
		RatePerSecond: config.Actions.RatePerSecond,
		Burst:         config.Actions.Burst,
		Logger:        logger,
	})
}

// SetLogger replaces the logger used by the runner and its client.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
	r.client = newClient(r.config, logger)
}

// openJournal opens the outcome journal. The returned func closes the database.
func (r *Runner) openJournal() (*repositories.OutcomeRepository, func(), error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return repositories.NewOutcomeRepository(db), func() { db.Close() }, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, statusCommand, jobsCommand, watchCommand, pauseCommand, resumeCommand,
		clearCommand, syncCommand, avatarsCommand, fetchCommand, downloadCommand, schedulerCommand,
		historyCommand, mockCommand, openCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
