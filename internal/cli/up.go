package cli

import (
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/contractbot-workspace/internal/bootstrap"
	"github.com/shinji-kodama/contractbot-workspace/internal/metrics"
	"github.com/shinji-kodama/contractbot-workspace/internal/syncer"
)

// upFlags holds the flag values for the up command.
type upFlags struct {
	bootstrapFlags

	// launch starts the service after a successful bootstrap.
	launch bool

	// config is the service configuration file. Setting it implies
	// launch.
	config string
}

// upResult is the --json output of the up command.
type upResult struct {
	Sync      *syncer.Result    `json:"sync"`
	Bootstrap *bootstrap.Result `json:"bootstrap"`
}

// NewUpCommand creates the "up" cobra command.
func NewUpCommand() *cobra.Command {
	flags := &upFlags{}

	cmd := &cobra.Command{
		Use:   "up [remote-url]",
		Short: "Synchronize, bootstrap and optionally start the service",
		Long: `Run the full lifecycle: synchronize the working tree, provision the
environment, then (with --launch or --config) start the service in the
foreground. The first failing step stops the run.

Examples:
  contractbot-workspace up https://github.com/example/contractbot.git
  contractbot-workspace up --launch
  contractbot-workspace up --config /etc/contractbot/config.json`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runUp(cmd, args, flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&flags.launch, "launch", false, "Start the service after bootstrapping")
	cmd.Flags().StringVar(&flags.config, "config", "", "Service configuration file (implies --launch)")

	return cmd
}

func runUp(cmd *cobra.Command, args []string, flags *upFlags) error {
	ws, err := openWorkspace(cmd, metrics.ComponentSync)
	if err != nil {
		return err
	}
	defer ws.close()

	ctx := cmd.Context()

	syncRes, err := ws.sync(ctx, firstArg(args))
	if err != nil {
		return err
	}
	if !IsJSONOutput() {
		printSyncResult(ws.stdout, syncRes)
	}

	bootRes, err := ws.bootstrap(ctx, &flags.bootstrapFlags)
	if err != nil {
		return err
	}
	if IsJSONOutput() {
		if err := printJSON(ws.stdout, upResult{Sync: syncRes, Bootstrap: bootRes}); err != nil {
			return err
		}
	}

	if !flags.launch && flags.config == "" {
		return nil
	}
	configPath := ws.cfg.Service.Config
	if flags.config != "" {
		configPath = ws.cfg.Path(flags.config)
	}
	return ws.launch(ctx, bootRes.Env.Python, ws.cfg.Service.Module, configPath)
}
