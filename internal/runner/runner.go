package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Command describes a single subprocess invocation.
type Command struct {
	// Name is the executable, either a bare name resolved through PATH or
	// an absolute path.
	Name string

	// Args are the arguments passed after Name.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Stdin, Stdout and Stderr, when set, are attached to the child in
	// addition to the captured buffers. The handoff to the service uses
	// them to give the child the terminal.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Stream disables capturing, so output only reaches Stdout and Stderr.
	// Long-running children set it to keep memory flat.
	Stream bool
}

// String renders the command line for diagnostics.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result is the captured outcome of a finished subprocess.
type Result struct {
	// ExitCode is the child's exit status, -1 if it never started or was
	// killed by a signal.
	ExitCode int

	// Stdout and Stderr hold the captured output.
	Stdout string
	Stderr string
}

// Runner runs commands and resolves executables. Implementations block until
// the child exits or ctx is cancelled.
type Runner interface {
	// Run executes cmd. A non-zero exit status is reported as an
	// *ExitError alongside the populated Result.
	Run(ctx context.Context, cmd Command) (Result, error)

	// LookPath resolves an executable name the way the shell would.
	LookPath(name string) (string, error)
}

// ExitError reports a command that ran but did not succeed.
type ExitError struct {
	Command Command
	Result  Result
	Err     error
}

// Error includes the last line of stderr when there is one, since git and
// pip put the reason for a failure there.
func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Command, e.Err)
	if line := lastLine(e.Result.Stderr); line != "" {
		msg = fmt.Sprintf("%s: %s", msg, line)
	}
	return msg
}

// Unwrap returns the underlying exec error.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExecRunner implements Runner with os/exec.
//
// The child is started with exec.CommandContext, so cancelling ctx (for
// example on SIGINT) kills it and Run returns promptly.
type ExecRunner struct{}

// NewExecRunner creates a new ExecRunner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes cmd, capturing stdout and stderr.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	// #nosec G204 -- command lines are built by this program, not a shell
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdin = cmd.Stdin

	var stdout, stderr bytes.Buffer
	if cmd.Stream {
		c.Stdout = cmd.Stdout
		c.Stderr = cmd.Stderr
	} else {
		c.Stdout = tee(&stdout, cmd.Stdout)
		c.Stderr = tee(&stderr, cmd.Stderr)
	}

	err := c.Run()
	res := Result{
		ExitCode: c.ProcessState.ExitCode(),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(ctxErr, err)
		}
		return res, &ExitError{Command: cmd, Result: res, Err: err}
	}
	return res, nil
}

// LookPath resolves name through PATH, or checks it directly when it
// contains a path separator.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
