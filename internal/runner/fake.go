package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Call is a recorded invocation, without the stdio attachments.
type Call struct {
	Dir  string
	Name string
	Args []string
}

// Line renders the call the same way Command.String does, which is also the
// key used by FakeRunner.On.
func (c Call) Line() string {
	return Command{Name: c.Name, Args: c.Args}.String()
}

type response struct {
	result Result
	err    error
}

// FakeRunner is a test double that records commands without executing them.
//
// Responses are scripted per command line with On/Fail. When several
// responses are queued for one line they are consumed in order and the last
// one repeats. Unscripted commands succeed with empty output.
type FakeRunner struct {
	// Calls lists every Run invocation in order.
	Calls []Call

	// Paths maps executable names to the path LookPath returns. Names
	// missing from the map fail with exec.ErrNotFound.
	Paths map[string]string

	// LookPathCalls lists every LookPath argument in order.
	LookPathCalls []string

	// OnRun, when set, is called for every command before its scripted
	// response is returned. Tests use it to create the files a real
	// command would have produced.
	OnRun func(cmd Command)

	responses map[string][]response
}

// NewFakeRunner creates a new FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		Paths:     make(map[string]string),
		responses: make(map[string][]response),
	}
}

// On queues a response for the given command line.
func (f *FakeRunner) On(line string, result Result, err error) *FakeRunner {
	f.responses[line] = append(f.responses[line], response{result: result, err: err})
	return f
}

// Succeed queues a successful response with the given stdout.
func (f *FakeRunner) Succeed(line, stdout string) *FakeRunner {
	return f.On(line, Result{Stdout: stdout}, nil)
}

// Fail queues a failing response (exit status 1) with the given stderr.
func (f *FakeRunner) Fail(line, stderr string) *FakeRunner {
	res := Result{ExitCode: 1, Stderr: stderr}
	return f.On(line, res, &ExitError{
		Command: Command{Name: line},
		Result:  res,
		Err:     errors.New("exit status 1"),
	})
}

// Run records cmd and returns its scripted response.
func (f *FakeRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	f.Calls = append(f.Calls, Call{
		Dir:  cmd.Dir,
		Name: cmd.Name,
		Args: append([]string(nil), cmd.Args...),
	})

	if err := ctx.Err(); err != nil {
		return Result{ExitCode: -1}, &ExitError{Command: cmd, Result: Result{ExitCode: -1}, Err: err}
	}

	if f.OnRun != nil {
		f.OnRun(cmd)
	}

	line := cmd.String()
	queue := f.responses[line]
	if len(queue) == 0 {
		return Result{}, nil
	}
	resp := queue[0]
	if len(queue) > 1 {
		f.responses[line] = queue[1:]
	}
	return resp.result, resp.err
}

// LookPath returns the path registered in Paths.
func (f *FakeRunner) LookPath(name string) (string, error) {
	f.LookPathCalls = append(f.LookPathCalls, name)
	if p, ok := f.Paths[name]; ok {
		return p, nil
	}
	return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
}

// Lines returns the recorded calls rendered as command lines.
func (f *FakeRunner) Lines() []string {
	lines := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		lines[i] = c.Line()
	}
	return lines
}

// Ran reports whether a command with the given line was executed.
func (f *FakeRunner) Ran(line string) bool {
	for _, c := range f.Calls {
		if c.Line() == line {
			return true
		}
	}
	return false
}

// String summarizes the recorded calls, for test failure messages.
func (f *FakeRunner) String() string {
	return fmt.Sprintf("%d calls: %q", len(f.Calls), f.Lines())
}
