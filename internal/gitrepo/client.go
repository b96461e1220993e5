package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shinji-kodama/contractbot-workspace/internal/model"
	"github.com/shinji-kodama/contractbot-workspace/internal/runner"
)

// ErrRemoteNotFound is returned by RemoteURL when the remote is not
// configured in the working tree.
var ErrRemoteNotFound = errors.New("remote not found in repository")

// Client runs git subcommands against a working tree.
//
// It holds no state besides the runner and the git binary name; every
// method receives the working-tree root explicitly.
type Client struct {
	run runner.Runner
	git string
}

// NewClient creates a Client that invokes "git" through r.
func NewClient(r runner.Runner) *Client {
	return &Client{run: r, git: "git"}
}

// IsWorkTree reports whether root is inside a git working tree.
//
// It runs `git -C <root> rev-parse --is-inside-work-tree`. Any failure,
// including a missing root directory or a missing git binary, counts as
// "not a working tree": the caller then decides whether a clone is possible.
func (c *Client) IsWorkTree(ctx context.Context, root string) bool {
	out, err := c.runGit(ctx, root, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// RemoteURL returns the URL bound to the named remote.
// Returns ErrRemoteNotFound when the remote does not exist.
func (c *Client) RemoteURL(ctx context.Context, root, name string) (string, error) {
	out, err := c.runGit(ctx, root, "remote", "get-url", name)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrRemoteNotFound, name, err)
	}
	url := strings.TrimSpace(out)
	if url == "" {
		return "", fmt.Errorf("%w: %s", ErrRemoteNotFound, name)
	}
	return url, nil
}

// SetRemote binds name to url, repointing an existing remote or adding a
// missing one.
func (c *Client) SetRemote(ctx context.Context, root, name, url string) error {
	if _, err := c.RemoteURL(ctx, root, name); err == nil {
		if _, err := c.runGit(ctx, root, "remote", "set-url", name, url); err != nil {
			return fmt.Errorf("failed to update remote %s: %w", name, err)
		}
		return nil
	}

	if _, err := c.runGit(ctx, root, "remote", "add", name, url); err != nil {
		return fmt.Errorf("failed to add remote %s: %w", name, err)
	}
	return nil
}

// Fetch fetches branch from remote.
func (c *Client) Fetch(ctx context.Context, root, remote, branch string) error {
	_, err := c.runGit(ctx, root, "fetch", remote, branch)
	return err
}

// PullRebase pulls branch from remote, replaying local commits on top
// instead of creating a merge commit. A conflicting rebase is left in
// progress for the user to inspect.
func (c *Client) PullRebase(ctx context.Context, root, remote, branch string) error {
	_, err := c.runGit(ctx, root, "pull", "--rebase", remote, branch)
	return err
}

// Clone clones url into root with branch checked out. git creates root
// (and missing parents) when it does not exist; an existing root must be
// empty.
func (c *Client) Clone(ctx context.Context, url, root, branch string) error {
	args := []string{"clone"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, "--", url, root)

	// #nosec G204 -- args are constructed internally
	_, err := c.run.Run(ctx, runner.Command{Name: c.git, Args: args})
	if err != nil {
		return fmt.Errorf("git clone %s failed: %w", url, err)
	}
	return nil
}

// CloneInto clones url into an existing, non-empty root, which git clone
// refuses. The root becomes a repository with origin bound to url and
// branch checked out from origin/branch. Untracked files that the branch
// does not contain are left in place; a tracked file with the same path
// makes the checkout fail.
func (c *Client) CloneInto(ctx context.Context, url, root, branch string) error {
	steps := [][]string{
		{"init"},
		{"remote", "add", model.DefaultRemoteName, url},
		{"fetch", model.DefaultRemoteName, branch},
		{"checkout", "-B", branch, model.DefaultRemoteName + "/" + branch},
	}
	for _, args := range steps {
		if _, err := c.runGit(ctx, root, args...); err != nil {
			return fmt.Errorf("git clone %s into %s failed: %w", url, root, err)
		}
	}
	return nil
}

// runGit executes a git command in root and returns its stdout.
//
// The root is passed with -C rather than as the process working directory,
// so a root that does not exist yet produces an ordinary git failure.
func (c *Client) runGit(ctx context.Context, root string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", root}, args...)

	res, err := c.run.Run(ctx, runner.Command{Name: c.git, Args: fullArgs})
	if err != nil {
		return "", fmt.Errorf("git %s failed: %w", strings.Join(args, " "), err)
	}
	return res.Stdout, nil
}
