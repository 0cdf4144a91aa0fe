package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/trackui/internal/server"
	"github.com/urfave/cli/v3"
)

// Mock serves a simulated dashboard API until interrupted.
func (r *Runner) Mock(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Mock.Addr()
	}
	tick := cmd.Duration("tick")
	if tick <= 0 {
		return fmt.Errorf("--tick must be positive, got %v", tick)
	}

	ctx, stop := interruptible(ctx)
	defer stop()

	accounts := server.DefaultAccounts()
	dashboard := server.NewDashboard(server.DashboardOpts{Accounts: accounts, Logger: r.logger})
	go dashboard.Run(ctx, tick)

	r.writePlain("Mock dashboard on http://%s (%d accounts, step %v)\n", addr, len(accounts), tick)
	r.writePlain("Point [server] base_url at it, then run 'trackui tui'\n")

	return server.ListenAndServe(ctx, addr, server.NewMockHandler(dashboard, r.logger), r.logger)
}
