package cli

import (
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/contractbot-workspace/internal/metrics"
)

// runFlags holds the flag values for the run command.
type runFlags struct {
	module string
}

// NewRunCommand creates the "run" cobra command.
func NewRunCommand() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run [config]",
		Short: "Start the service from the provisioned environment",
		Long: `Start the service in the foreground with the environment's interpreter:

  <venv>/bin/python -m <module> <config>

The configuration file is checked first. The exit status of the service
becomes the exit status of this command.

Examples:
  contractbot-workspace run
  contractbot-workspace run /etc/contractbot/config.json`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args, flags)
		},
	}

	cmd.Flags().StringVar(&flags.module, "module", "", "Python module to run (default: contractbot)")
	return cmd
}

func runRun(cmd *cobra.Command, args []string, flags *runFlags) error {
	ws, err := openWorkspace(cmd, metrics.ComponentService)
	if err != nil {
		return err
	}
	defer ws.close()

	python, err := ws.venvPython(ws.cfg.Venv)
	if err != nil {
		return err
	}

	configPath := ws.cfg.Service.Config
	if len(args) == 1 {
		configPath = ws.cfg.Path(args[0])
	}
	module := ws.cfg.Service.Module
	if flags.module != "" {
		module = flags.module
	}
	return ws.launch(cmd.Context(), python, module, configPath)
}
