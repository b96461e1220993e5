package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/shinji-kodama/contractbot-workspace/internal/model"
	"github.com/shinji-kodama/contractbot-workspace/internal/runner"
)

// LaunchOptions identify the service process.
type LaunchOptions struct {
	// Python is the interpreter inside the virtual environment.
	Python string

	// Module is run with `python -m`. Empty means model.DefaultServiceModule.
	Module string

	// Config is the configuration file passed as the only argument.
	Config string

	// Dir is the working directory, normally the working-tree root.
	Dir string
}

// Launcher starts the service and waits for it to exit.
type Launcher struct {
	run    runner.Runner
	logger *slog.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// NewLauncher creates a Launcher wired to the process's standard streams.
func NewLauncher(r runner.Runner, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Launcher{
		run:    r,
		logger: logger,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// SetIO replaces the streams handed to the child.
func (l *Launcher) SetIO(stdin io.Reader, stdout, stderr io.Writer) {
	l.stdin, l.stdout, l.stderr = stdin, stdout, stderr
}

// Launch runs the service in the foreground. It returns nil when the
// service exits 0 and a service error whose Code is the child's exit
// status otherwise.
func (l *Launcher) Launch(ctx context.Context, opts LaunchOptions) error {
	if opts.Python == "" {
		return model.NewKindError(model.KindUsage, "no python interpreter to launch the service with")
	}
	module := opts.Module
	if module == "" {
		module = model.DefaultServiceModule
	}

	cmd := runner.Command{
		Name:   opts.Python,
		Args:   []string{"-m", module, opts.Config},
		Dir:    opts.Dir,
		Stdin:  l.stdin,
		Stdout: l.stdout,
		Stderr: l.stderr,
		Stream: true,
	}
	l.logger.Info("starting service", "command", cmd.String(), "dir", opts.Dir)

	res, err := l.run.Run(ctx, cmd)
	if err == nil {
		l.logger.Info("service exited", "code", 0)
		return nil
	}

	code := model.ExitCode(res.ExitCode)
	if code <= 0 {
		// Killed by a signal or never started.
		code = model.ExitGeneralError
	}
	l.logger.Info("service exited", "code", res.ExitCode)

	msg := fmt.Sprintf("service %s exited with status %d", module, res.ExitCode)
	if errors.Is(err, context.Canceled) {
		msg = fmt.Sprintf("service %s interrupted", module)
	}
	return &model.CLIError{Code: code, Kind: model.KindService, Message: msg, Err: err}
}
