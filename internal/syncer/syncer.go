package syncer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shinji-kodama/contractbot-workspace/internal/gitrepo"
	"github.com/shinji-kodama/contractbot-workspace/internal/model"
	"github.com/shinji-kodama/contractbot-workspace/internal/runner"
)

// Options are the inputs of one synchronization.
type Options struct {
	// Root is the absolute path of the working tree.
	Root string

	// RemoteURL is optional. It is required to clone an absent tree, and
	// when given for an existing tree it (re)binds origin.
	RemoteURL string

	// Branch is the branch to synchronize. Empty means model.DefaultBranch.
	Branch string
}

// Transition is one edge taken through the state machine.
type Transition struct {
	From model.SyncState `json:"from"`
	To   model.SyncState `json:"to"`
}

// Result describes a finished synchronization, successful or not.
type Result struct {
	Root        string          `json:"root"`
	Branch      string          `json:"branch"`
	State       model.SyncState `json:"state"`
	Transitions []Transition    `json:"transitions"`
	Cloned      bool            `json:"cloned"`
	RemoteURL   string          `json:"remoteUrl,omitempty"`
}

// Synchronizer reconciles a working tree with a remote branch.
// It is not safe for concurrent use against the same root.
type Synchronizer struct {
	git    *gitrepo.Client
	logger *slog.Logger
}

// New creates a Synchronizer that runs git through r. A nil logger
// discards log output.
func New(r runner.Runner, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Synchronizer{git: gitrepo.NewClient(r), logger: logger}
}

// Synchronize runs the decision procedure to a terminal state.
//
// The returned Result is always non-nil and its State is terminal. On
// failure the error is a *model.CLIError of kind usage, remote-config or
// vcs-operation.
func (s *Synchronizer) Synchronize(ctx context.Context, opts Options) (*Result, error) {
	branch := opts.Branch
	if branch == "" {
		branch = model.DefaultBranch
	}
	res := &Result{Root: opts.Root, Branch: branch, State: model.StateUnknown}

	if opts.Root == "" || !filepath.IsAbs(opts.Root) {
		s.move(res, model.StateFailed)
		return res, model.NewKindError(model.KindUsage,
			fmt.Sprintf("working tree root must be an absolute path, got %q", opts.Root))
	}
	root := filepath.Clean(opts.Root)
	res.Root = root
	log := s.logger.With("root", root, "branch", branch)

	for !res.State.IsTerminal() {
		var err error
		switch res.State {
		case model.StateUnknown:
			if s.git.IsWorkTree(ctx, root) {
				s.move(res, model.StateExistingTree)
			} else {
				s.move(res, model.StateNoTree)
			}
			log.Debug("inspected working tree", "state", res.State)

		case model.StateExistingTree:
			err = s.update(ctx, log, res, root, opts.RemoteURL, branch)

		case model.StateNoTree:
			err = s.clone(ctx, log, res, root, opts.RemoteURL, branch)

		default:
			err = fmt.Errorf("unexpected sync state %q", res.State)
		}

		if err != nil {
			s.move(res, model.StateFailed)
			log.Debug("synchronization failed", "error", err)
			return res, err
		}
	}

	log.Info("working tree synchronized", "cloned", res.Cloned)
	return res, nil
}

// update handles ExistingTree: bind origin if a URL was given, require an
// origin, then fetch and rebase-pull the branch.
func (s *Synchronizer) update(ctx context.Context, log *slog.Logger, res *Result, root, url, branch string) error {
	remote := model.DefaultRemoteName

	if url != "" {
		log.Debug("binding remote", "remote", remote, "url", url)
		if err := s.git.SetRemote(ctx, root, remote, url); err != nil {
			return model.WrapKindError(model.KindRemoteConfig,
				fmt.Sprintf("failed to bind %s to %s", remote, url), err)
		}
	}

	bound, err := s.git.RemoteURL(ctx, root, remote)
	if err != nil {
		return model.WrapKindError(model.KindRemoteConfig,
			fmt.Sprintf("remote %s is not configured; pass the repository URL", remote), err)
	}
	res.RemoteURL = bound

	log.Debug("fetching", "remote", remote)
	if err := s.git.Fetch(ctx, root, remote, branch); err != nil {
		return model.WrapKindError(model.KindVCSOperation,
			fmt.Sprintf("failed to fetch %s from %s", branch, remote), err)
	}

	log.Debug("pulling with rebase", "remote", remote)
	if err := s.git.PullRebase(ctx, root, remote, branch); err != nil {
		return model.WrapKindError(model.KindVCSOperation,
			fmt.Sprintf("failed to rebase %s onto %s/%s", root, remote, branch), err)
	}

	s.move(res, model.StateSynced)
	return nil
}

// clone handles NoTree: a URL is mandatory. A root that already holds
// files (workspace.yaml, .env) is cloned in place.
func (s *Synchronizer) clone(ctx context.Context, log *slog.Logger, res *Result, root, url, branch string) error {
	if url == "" {
		return model.NewKindError(model.KindUsage,
			fmt.Sprintf("%s is not a git repository; pass the repository URL to clone it", root))
	}

	clone := s.git.Clone
	if populated(root) {
		log.Debug("root is not empty, cloning in place")
		clone = s.git.CloneInto
	}

	log.Debug("cloning", "url", url)
	if err := clone(ctx, url, root, branch); err != nil {
		return model.WrapKindError(model.KindVCSOperation,
			fmt.Sprintf("failed to clone %s into %s", url, root), err)
	}

	res.Cloned = true
	res.RemoteURL = url
	s.move(res, model.StateSynced)
	return nil
}

// populated reports whether root is an existing directory with entries.
func populated(root string) bool {
	entries, err := os.ReadDir(root)
	return err == nil && len(entries) > 0
}

func (s *Synchronizer) move(res *Result, to model.SyncState) {
	res.Transitions = append(res.Transitions, Transition{From: res.State, To: to})
	res.State = to
}
