// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
		},
	}
}

func setupCommand(r *Runner) *cli.Command {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}

	return &cli.Command{
		Name:  "setup",
		Usage: "Create the configuration file and the outcome journal",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write config.toml from the built-in template",
				Flags:  []cli.Flag{configFlag},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize the journal database and run migrations",
				Flags: []cli.Flag{
					configFlag,
					&cli.BoolFlag{
						Name:  "status",
						Usage: "List applied migrations instead of migrating",
					},
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the global status indicator",
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:    "follow",
				Aliases: []string{"f"},
				Usage:   "Keep polling and print every change until interrupted",
			},
		}, outputFlags()...),
		Action: r.Status,
	}
}

func jobsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "jobs",
		Aliases: []string{"ls"},
		Usage:   "List download jobs",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "filter",
				Usage: "Fuzzy filter on account names",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format (text, csv, markdown)",
				Value: "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the export to a file instead of stdout",
			},
		}, outputFlags()...),
		Action: r.Jobs,
	}
}

func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Follow one job until it finishes, or every job until interrupted",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:      "id",
				UsageText: "Job to follow; all jobs when omitted",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-journal",
				Usage: "Do not record finished jobs in the outcome journal",
			},
		},
		Action: r.Watch,
	}
}

func pauseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "pause",
		Usage:     "Pause one or more downloads",
		ArgsUsage: "<id>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Pause every pausable download",
			},
		},
		Action: r.Pause,
	}
}

func resumeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "resume",
		Usage:     "Resume one or more paused downloads",
		ArgsUsage: "<id>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Resume every paused download",
			},
		},
		Action: r.Resume,
	}
}

func clearCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "clear",
		Usage:  "Clear completed downloads",
		Action: r.Clear,
	}
}

func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "sync",
		Usage:  "Start a sync of every account",
		Action: r.Sync,
	}
}

func avatarsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "avatars",
		Usage:  "Refresh avatars for every account",
		Action: r.Avatars,
	}
}

func fetchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Start a download from an external URL",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:      "url",
				UsageText: "Post or profile URL",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dest",
				Aliases: []string{"d"},
				Usage:   "Destination folder on the server",
			},
		},
		Action: r.Fetch,
	}
}

func downloadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "Start a download for one account",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:      "account",
				UsageText: "Account handle",
			},
		},
		Action: r.Download,
	}
}

func schedulerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "scheduler",
		Usage:  "Show the sync scheduler status",
		Flags:  outputFlags(),
		Action: r.Scheduler,
	}
}

func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect the journal of finished jobs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recorded outcomes, newest first",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "job",
						Usage: "Only outcomes of this job",
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only outcomes with this status (completed, failed)",
					},
					&cli.DurationFlag{
						Name:  "since",
						Usage: "Only outcomes observed within this window, e.g. 24h",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of outcomes",
						Value: 20,
					},
				}, outputFlags()...),
				Action: r.HistoryList,
			},
			{
				Name:   "stats",
				Usage:  "Summarize recorded outcomes",
				Flags:  outputFlags(),
				Action: r.HistoryStats,
			},
			{
				Name:  "prune",
				Usage: "Delete outcomes older than a cutoff",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Age of the oldest outcome to keep",
						Value: 30 * 24 * time.Hour,
					},
				},
				Action: r.HistoryPrune,
			},
		},
	}
}

func mockCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "mock",
		Usage: "Serve a simulated dashboard API for development",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (defaults to [mock] in config)",
			},
			&cli.DurationFlag{
				Name:  "tick",
				Usage: "Simulation step interval",
				Value: time.Second,
			},
		},
		Action: r.Mock,
	}
}

func openCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "open",
		Usage:  "Open the web dashboard in a browser",
		Action: r.Open,
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Launch the interactive terminal UI",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-journal",
				Usage: "Do not record finished jobs in the outcome journal",
			},
		},
		Action: r.TUI,
	}
}
