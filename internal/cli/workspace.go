package cli

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/contractbot-workspace/internal/bootstrap"
	"github.com/shinji-kodama/contractbot-workspace/internal/config"
	"github.com/shinji-kodama/contractbot-workspace/internal/metrics"
	"github.com/shinji-kodama/contractbot-workspace/internal/model"
	"github.com/shinji-kodama/contractbot-workspace/internal/runner"
	"github.com/shinji-kodama/contractbot-workspace/internal/service"
	"github.com/shinji-kodama/contractbot-workspace/internal/syncer"
)

// workspace bundles what every command needs for one run: the resolved
// configuration, a logger, the subprocess runner and the metrics recorder.
type workspace struct {
	cfg     *config.Config
	logger  *slog.Logger
	run     runner.Runner
	metrics *metrics.Recorder

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// newLogger logs to w at WARN, or DEBUG with --verbose.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openWorkspace resolves the root and layers the configuration. Flags are
// applied last. A configuration failure is recorded under component, so
// the textfile reports runs that never got past loading.
func openWorkspace(cmd *cobra.Command, component string) (*workspace, error) {
	logger := newLogger(cmd.ErrOrStderr())
	rec := metrics.New()

	start := time.Now()
	cfg, err := loadConfig()
	if err != nil {
		rec.Observe(component, start, err)
		writeMetrics(rec, logger)
		return nil, err
	}
	logger.Debug("configuration loaded", "root", cfg.Root, "branch", cfg.Branch, "venv", cfg.Venv)

	return &workspace{
		cfg:     cfg,
		logger:  logger,
		run:     newRunner(),
		metrics: rec,
		stdin:   cmd.InOrStdin(),
		stdout:  cmd.OutOrStdout(),
		stderr:  cmd.ErrOrStderr(),
	}, nil
}

// step runs fn and records its outcome under component.
func (w *workspace) step(component string, fn func() error) error {
	start := time.Now()
	err := fn()
	w.metrics.Observe(component, start, err)
	return err
}

func loadConfig() (*config.Config, error) {
	root, err := config.ResolveRoot(rootFlag, lookupEnv)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root, lookupEnv)
	if err != nil {
		return nil, err
	}
	if branchFlag != "" {
		cfg.Branch = branchFlag
	}
	return cfg, nil
}

// close writes the metrics textfile when --metrics-file is set.
func (w *workspace) close() {
	writeMetrics(w.metrics, w.logger)
}

// writeMetrics writes rec to --metrics-file, if set. A write failure is
// logged and does not change the exit code.
func writeMetrics(rec *metrics.Recorder, logger *slog.Logger) {
	if metricsFile == "" {
		return
	}
	if err := rec.WriteTextfile(metricsFile); err != nil {
		logger.Warn("failed to write metrics", "path", metricsFile, "error", err)
	}
}

// sync runs the Synchronizer. An empty url falls back to the configured
// remote_url.
func (w *workspace) sync(ctx context.Context, url string) (*syncer.Result, error) {
	if url == "" {
		url = w.cfg.RemoteURL
	}

	var res *syncer.Result
	err := w.step(metrics.ComponentSync, func() error {
		var err error
		res, err = syncer.New(w.run, w.logger).Synchronize(ctx, syncer.Options{
			Root:      w.cfg.Root,
			RemoteURL: url,
			Branch:    w.cfg.Branch,
		})
		return err
	})
	return res, err
}

// bootstrapFlags are shared by the bootstrap and up commands.
type bootstrapFlags struct {
	python       string
	venv         string
	requirements string
}

func (f *bootstrapFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.python, "python", "", "Python interpreter used to create the environment (default: python3)")
	cmd.Flags().StringVar(&f.venv, "venv", "", "Virtual environment directory (default: .venv under the root)")
	cmd.Flags().StringVar(&f.requirements, "requirements", "", "Dependency manifest (default: requirements.txt under the root)")
}

// bootstrap runs the Bootstrapper with flags over configuration. The
// guidance is printed in text mode only.
func (w *workspace) bootstrap(ctx context.Context, flags *bootstrapFlags) (*bootstrap.Result, error) {
	opts := bootstrap.Options{
		Root:          w.cfg.Root,
		Interpreter:   w.cfg.Python,
		VenvDir:       w.cfg.Venv,
		Manifest:      w.cfg.Requirements,
		ServiceModule: w.cfg.Service.Module,
		ServiceConfig: w.cfg.Service.Config,
	}
	if flags.python != "" {
		opts.Interpreter = flags.python
	}
	if flags.venv != "" {
		opts.VenvDir = w.cfg.Path(flags.venv)
	}
	if flags.requirements != "" {
		opts.Manifest = w.cfg.Path(flags.requirements)
	}

	b := bootstrap.New(w.run, w.logger)
	if !IsJSONOutput() {
		b.SetOutput(w.stdout)
	}

	var res *bootstrap.Result
	err := w.step(metrics.ComponentBootstrap, func() error {
		var err error
		res, err = b.Bootstrap(ctx, opts)
		return err
	})
	return res, err
}

// venvPython locates the interpreter of an already provisioned
// environment.
func (w *workspace) venvPython(venv string) (string, error) {
	python, err := bootstrap.VenvPython(venv, runtime.GOOS)
	if err != nil {
		return "", model.WrapKindError(model.KindEnvironment,
			"virtual environment is not provisioned; run bootstrap first", err)
	}
	return python, nil
}

// launch checks the service configuration and runs the service in the
// foreground with this process's streams.
func (w *workspace) launch(ctx context.Context, python, module, configPath string) error {
	return w.step(metrics.ComponentService, func() error {
		summary, err := service.Preflight(configPath)
		if err != nil {
			return err
		}
		w.logger.Debug("service configuration ok", "path", summary.Path, "keys", summary.Keys)

		l := service.NewLauncher(w.run, w.logger)
		l.SetIO(w.stdin, w.stdout, w.stderr)
		return l.Launch(ctx, service.LaunchOptions{
			Python: python,
			Module: module,
			Config: configPath,
			Dir:    w.cfg.Root,
		})
	})
}
