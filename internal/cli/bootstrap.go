package cli

import (
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/contractbot-workspace/internal/metrics"
)

// NewBootstrapCommand creates the "bootstrap" cobra command.
func NewBootstrapCommand() *cobra.Command {
	flags := &bootstrapFlags{}

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the Python virtual environment and install dependencies",
		Long: `Provision the runtime environment of the working tree.

The virtual environment is created with the interpreter's venv module unless
it already exists; an existing environment is never recreated. pip is then
upgraded and the dependency manifest installed.

Examples:
  contractbot-workspace bootstrap
  contractbot-workspace bootstrap --python python3.12
  contractbot-workspace bootstrap --venv /opt/contractbot/venv --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runBootstrap(cmd, flags)
		},
	}

	flags.register(cmd)
	return cmd
}

func runBootstrap(cmd *cobra.Command, flags *bootstrapFlags) error {
	ws, err := openWorkspace(cmd, metrics.ComponentBootstrap)
	if err != nil {
		return err
	}
	defer ws.close()

	res, err := ws.bootstrap(cmd.Context(), flags)
	if err != nil {
		return err
	}

	// Text mode output is the guidance the Bootstrapper already printed.
	if IsJSONOutput() {
		return printJSON(ws.stdout, res)
	}
	return nil
}
