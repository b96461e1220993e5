package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/contractbot-workspace/internal/metrics"
	"github.com/shinji-kodama/contractbot-workspace/internal/syncer"
)

// NewSyncCommand creates the "sync" cobra command.
func NewSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [remote-url]",
		Short: "Clone or update the working tree from the remote branch",
		Long: `Bring the working tree at the root to the tip of the remote branch.

An existing tree is fetched and rebased onto origin/<branch>. If a remote URL
is given, origin is (re)pointed at it first. A root without a tree is cloned,
which requires the URL (argument or remote_url in workspace.yaml).

Examples:
  contractbot-workspace sync https://github.com/example/contractbot.git
  contractbot-workspace sync --branch develop
  BRANCH=release contractbot-workspace sync --root /srv/contractbot`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, args)
		},
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(cmd, metrics.ComponentSync)
	if err != nil {
		return err
	}
	defer ws.close()

	res, err := ws.sync(cmd.Context(), firstArg(args))
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		return printJSON(ws.stdout, res)
	}
	printSyncResult(ws.stdout, res)
	return nil
}

func printSyncResult(w io.Writer, res *syncer.Result) {
	if res.Cloned {
		printSuccess(w, "Cloned %s into %s (branch %s)", res.RemoteURL, res.Root, res.Branch)
		return
	}
	printSuccess(w, "Synchronized %s with origin/%s", res.Root, res.Branch)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
