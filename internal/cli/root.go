// Package cli implements the cobra-based CLI commands for
// contractbot-workspace.
//
// Each subcommand (sync, bootstrap, up, status, run) is defined in its own
// file within this package. This file defines the root command, the global
// flags and the single place where errors become exit codes.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/contractbot-workspace/internal/model"
	"github.com/shinji-kodama/contractbot-workspace/internal/runner"
)

// Global flag variables shared across all subcommands. They are bound to
// persistent flags on the root command.
var (
	// jsonOutput switches command output and error reports to JSON.
	jsonOutput bool

	// verbose lowers the log level from WARN to DEBUG.
	verbose bool

	// rootFlag is the working-tree root. Empty falls back to
	// CONTRACTBOT_ROOT, then the current directory.
	rootFlag string

	// branchFlag overrides BRANCH and workspace.yaml.
	branchFlag string

	// metricsFile, when set, receives a Prometheus textfile at the end of
	// the run.
	metricsFile string
)

// Process collaborators. Tests replace them.
var (
	newRunner = func() runner.Runner { return runner.NewExecRunner() }
	lookupEnv = os.LookupEnv
)

// Version, Commit and Date are set from main at startup.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "contractbot-workspace",
		Short: "Keep the ContractBot working tree and Python environment up to date",
		Long: `contractbot-workspace brings a ContractBot deployment to a runnable state.

It clones or updates the git working tree from the remote branch, provisions
the Python virtual environment and its dependencies, and can then hand control
to the service. Every step is idempotent and safe to re-run.`,

		// Errors are reported once by Execute, in text or JSON.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	flags.StringVar(&rootFlag, "root", "", "Working tree root (default: $CONTRACTBOT_ROOT, then the current directory)")
	flags.StringVar(&branchFlag, "branch", "", "Branch to synchronize (default: $BRANCH, then main)")
	flags.StringVar(&metricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this path")

	rootCmd.AddCommand(NewSyncCommand())
	rootCmd.AddCommand(NewBootstrapCommand())
	rootCmd.AddCommand(NewUpCommand())
	rootCmd.AddCommand(NewStatusCommand())
	rootCmd.AddCommand(NewRunCommand())

	return rootCmd
}

// Execute runs the root command and returns the process exit code.
//
// CLIError values carry their own exit code; any other error exits with
// ExitGeneralError. The diagnostic goes to the command's stderr.
func Execute(ctx context.Context, rootCmd *cobra.Command) int {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return int(model.ExitSuccess)
	}

	printError(rootCmd.ErrOrStderr(), err)

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) && cliErr.Code != model.ExitSuccess {
		return int(cliErr.Code)
	}
	return int(model.ExitGeneralError)
}

// errorJSON is the --json error document.
type errorJSON struct {
	Error struct {
		Kind    string `json:"kind,omitempty"`
		Message string `json:"message"`
		Detail  string `json:"detail,omitempty"`
	} `json:"error"`
}

// printError writes a single diagnostic line, or a JSON document when
// --json is set.
func printError(w io.Writer, err error) {
	message, detail := err.Error(), ""
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		message = cliErr.Message
		if cliErr.Err != nil {
			detail = cliErr.Err.Error()
		}
	}

	if jsonOutput {
		var doc errorJSON
		doc.Error.Kind = model.KindOf(err).String()
		doc.Error.Message = message
		doc.Error.Detail = detail
		data, _ := json.MarshalIndent(doc, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	line := message
	if detail != "" {
		line = message + ": " + detail
	}
	fmt.Fprintf(w, "Error: %s\n", singleLine(line))
}

// singleLine folds multi-line subprocess output into one line.
func singleLine(s string) string {
	var parts []string
	for _, l := range strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' }) {
		if l = strings.TrimSpace(l); l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, " | ")
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}
