package cli

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/contractbot-workspace/internal/bootstrap"
	"github.com/shinji-kodama/contractbot-workspace/internal/gitrepo"
	"github.com/shinji-kodama/contractbot-workspace/internal/model"
)

// statusResult is the state of the workspace as seen on disk.
type statusResult struct {
	Tree          *model.WorkingTree       `json:"tree"`
	TargetBranch  string                   `json:"targetBranch"`
	Env           model.VirtualEnvironment `json:"env"`
	EnvExists     bool                     `json:"envExists"`
	Manifest      string                   `json:"manifest"`
	ServiceConfig string                   `json:"serviceConfig"`
	ConfigExists  bool                     `json:"configExists"`
}

// NewStatusCommand creates the "status" cobra command.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the working tree and environment state",
		Long: `Show what sync and bootstrap would start from, without changing anything:
whether the root is a git working tree, its branch and origin, and whether
the virtual environment and service configuration exist.

Examples:
  contractbot-workspace status
  contractbot-workspace status --root /srv/contractbot --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd)
		},
	}
}

func runStatus(cmd *cobra.Command) error {
	// status changes nothing, so there is no run to record.
	if metricsFile != "" {
		return model.NewKindError(model.KindUsage, "--metrics-file is not supported by status")
	}
	ws, err := openWorkspace(cmd, "")
	if err != nil {
		return err
	}

	tree, err := gitrepo.Inspect(ws.cfg.Root)
	if err != nil {
		return model.WrapKindError(model.KindVCSOperation, "failed to inspect the working tree", err)
	}

	res := statusResult{
		Tree:          tree,
		TargetBranch:  ws.cfg.Branch,
		Env:           model.VirtualEnvironment{Path: ws.cfg.Venv},
		Manifest:      ws.cfg.Requirements,
		ServiceConfig: ws.cfg.Service.Config,
		ConfigExists:  exists(ws.cfg.Service.Config),
	}
	if info, err := os.Stat(ws.cfg.Venv); err == nil && info.IsDir() {
		res.EnvExists = true
		if python, err := bootstrap.VenvPython(ws.cfg.Venv, runtime.GOOS); err == nil {
			res.Env.Python = python
		}
	}

	if IsJSONOutput() {
		return printJSON(ws.stdout, res)
	}
	printStatus(ws.stdout, res)
	return nil
}

func printStatus(w io.Writer, res statusResult) {
	printSection(w, "Working tree")
	printLabelValue(w, "Root", res.Tree.Root)
	if !res.Tree.Versioned {
		printWarning(w, "Not a git working tree; sync needs a remote URL to clone")
	} else {
		branch := res.Tree.Branch
		if branch == "" {
			branch = "(detached HEAD)"
		}
		printLabelValue(w, "Branch", branch)
		printLabelValue(w, "Target", "origin/"+res.TargetBranch)
		if res.Tree.Remote != nil {
			printLabelValue(w, "Origin", res.Tree.Remote.URL)
		} else {
			printWarning(w, "No origin remote; sync needs a remote URL")
		}
		if res.Tree.Branch != "" && res.Tree.Branch != res.TargetBranch {
			printWarning(w, "Checked out %s, but sync targets %s", res.Tree.Branch, res.TargetBranch)
		}
	}

	printSection(w, "Environment")
	printLabelValue(w, "Venv", res.Env.Path)
	switch {
	case !res.EnvExists:
		printWarning(w, "Virtual environment missing; run bootstrap")
	case res.Env.Python == "":
		printWarning(w, "Virtual environment has no interpreter; remove it and run bootstrap")
	default:
		printLabelValue(w, "Python", res.Env.Python)
	}
	printLabelValue(w, "Requirements", res.Manifest)
	printLabelValue(w, "Service config", res.ServiceConfig)
	if !res.ConfigExists {
		printWarning(w, "Service configuration missing")
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
