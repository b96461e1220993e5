// Package main is the entry point for the contractbot-workspace CLI.
//
// The binary brings a ContractBot deployment to a runnable state: it
// synchronizes the git working tree, provisions the Python environment and
// can hand control to the service. All functionality lives in internal/cli.
//
// Build-time variables (version, commit, date) are injected via ldflags.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shinji-kodama/contractbot-workspace/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

// run executes the CLI and returns its exit code. SIGINT and SIGTERM
// cancel the context, which kills the running subprocess.
func run() int {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.Execute(ctx, cli.NewRootCommand())
}
