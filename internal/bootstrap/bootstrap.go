package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/shinji-kodama/contractbot-workspace/internal/model"
	"github.com/shinji-kodama/contractbot-workspace/internal/runner"
)

// DefaultInterpreter is the interpreter used when no hint is given.
func DefaultInterpreter() string {
	if runtime.GOOS == "windows" {
		return "python"
	}
	return "python3"
}

// Options are the inputs of one bootstrap run.
type Options struct {
	// Root is the absolute path of the working tree.
	Root string

	// Interpreter overrides DefaultInterpreter. It may be a bare name
	// resolved through PATH or a path.
	Interpreter string

	// VenvDir is the environment directory. Relative paths resolve
	// against Root; empty means model.DefaultVenvDir.
	VenvDir string

	// Manifest is the requirements file. Relative paths resolve against
	// Root; empty means model.DefaultManifest.
	Manifest string

	// ServiceModule and ServiceConfig only feed the printed guidance.
	ServiceModule string
	ServiceConfig string
}

// Result describes a successful bootstrap.
type Result struct {
	// Interpreter is the resolved path of the base interpreter.
	Interpreter string `json:"interpreter"`

	// Env is the virtual environment, including its interpreter.
	Env model.VirtualEnvironment `json:"env"`

	// Manifest is the requirements file handed to pip.
	Manifest model.DependencyManifest `json:"manifest"`

	// Created is true when this run created the environment.
	Created bool `json:"created"`
}

// Bootstrapper provisions the runtime environment.
type Bootstrapper struct {
	run    runner.Runner
	logger *slog.Logger
	out    io.Writer
	goos   string
}

// New creates a Bootstrapper that runs the interpreter and pip through r.
// A nil logger discards log output.
func New(r runner.Runner, logger *slog.Logger) *Bootstrapper {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Bootstrapper{run: r, logger: logger, out: io.Discard, goos: runtime.GOOS}
}

// SetOutput sets where the guidance of step 4 is written. The default
// discards it.
func (b *Bootstrapper) SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	b.out = w
}

// Bootstrap runs the steps in order and stops at the first failure.
// Errors are *model.CLIError of kind usage, environment or
// dependency-install.
func (b *Bootstrapper) Bootstrap(ctx context.Context, opts Options) (*Result, error) {
	if opts.Root == "" || !filepath.IsAbs(opts.Root) {
		return nil, model.NewKindError(model.KindUsage,
			fmt.Sprintf("working tree root must be an absolute path, got %q", opts.Root))
	}
	root := filepath.Clean(opts.Root)

	venvDir := opts.VenvDir
	if venvDir == "" {
		venvDir = model.DefaultVenvDir
	}
	manifest := opts.Manifest
	if manifest == "" {
		manifest = model.DefaultManifest
	}

	res := &Result{
		Env:      model.VirtualEnvironment{Path: model.ResolvePath(root, venvDir)},
		Manifest: model.DependencyManifest{Path: model.ResolvePath(root, manifest)},
	}
	log := b.logger.With("root", root, "venv", res.Env.Path)

	// Step 1: the interpreter must resolve before anything touches disk.
	hint := opts.Interpreter
	if hint == "" {
		hint = DefaultInterpreter()
	}
	interpreter, err := b.run.LookPath(hint)
	if err != nil {
		return nil, model.WrapKindError(model.KindEnvironment,
			fmt.Sprintf("python interpreter %q not found", hint), err)
	}
	res.Interpreter = interpreter
	log.Debug("resolved interpreter", "interpreter", interpreter)

	// Step 2: existence is the only creation precondition. An existing
	// directory is never reset, even if it looks broken.
	created, err := b.ensureVenv(ctx, interpreter, res.Env.Path)
	if err != nil {
		return nil, err
	}
	res.Created = created
	log.Debug("virtual environment ready", "created", created)

	python, err := VenvPython(res.Env.Path, b.goos)
	if err != nil {
		return nil, model.WrapKindError(model.KindEnvironment,
			fmt.Sprintf("no python interpreter inside %s; remove the directory and run bootstrap again", res.Env.Path), err)
	}
	res.Env.Python = python

	// Step 3: pip first, then the manifest.
	if err := b.pip(ctx, root, python, "install", "--upgrade", "pip"); err != nil {
		return nil, model.WrapKindError(model.KindDependencyInstall, "failed to upgrade pip", err)
	}
	if err := b.pip(ctx, root, python, "install", "-r", res.Manifest.Path); err != nil {
		return nil, model.WrapKindError(model.KindDependencyInstall,
			fmt.Sprintf("failed to install dependencies from %s", res.Manifest.Path), err)
	}

	log.Info("runtime environment bootstrapped", "created", created)

	// Step 4: informational only; a write error does not fail the run.
	writeGuidance(b.out, res, guidanceFor(opts, b.goos))
	return res, nil
}

// ensureVenv creates the environment when path does not exist. It reports
// whether it created it.
func (b *Bootstrapper) ensureVenv(ctx context.Context, interpreter, path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return false, nil
	case err == nil:
		return false, model.NewKindError(model.KindEnvironment,
			fmt.Sprintf("%s exists but is not a directory", path))
	case !errors.Is(err, fs.ErrNotExist):
		return false, model.WrapKindError(model.KindEnvironment,
			fmt.Sprintf("failed to inspect %s", path), err)
	}

	_, err = b.run.Run(ctx, runner.Command{
		Name: interpreter,
		Args: []string{"-m", "venv", path},
	})
	if err != nil {
		return false, model.WrapKindError(model.KindEnvironment,
			fmt.Sprintf("failed to create virtual environment at %s", path), err)
	}
	return true, nil
}

func (b *Bootstrapper) pip(ctx context.Context, dir, python string, args ...string) error {
	_, err := b.run.Run(ctx, runner.Command{
		Name: python,
		Args: append([]string{"-m", "pip"}, args...),
		Dir:  dir,
	})
	return err
}

// VenvPython locates the interpreter inside a virtual environment for the
// given GOOS.
func VenvPython(venv, goos string) (string, error) {
	var candidates []string
	if goos == "windows" {
		candidates = []string{filepath.Join(venv, "Scripts", "python.exe")}
	} else {
		candidates = []string{
			filepath.Join(venv, "bin", "python"),
			filepath.Join(venv, "bin", "python3"),
		}
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("none of %v exist", candidates)
}

// ActivationHint returns the shell command that activates the environment.
func ActivationHint(venv, goos string) string {
	if goos == "windows" {
		return filepath.Join(venv, "Scripts", "activate.bat")
	}
	return "source " + filepath.Join(venv, "bin", "activate")
}
