package gitrepo

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/shinji-kodama/contractbot-workspace/internal/model"
)

// Inspect describes the working tree at root without modifying it.
//
// A root that is not inside a git repository (or does not exist) yields a
// WorkingTree with Versioned false and no error. Parent directories are
// searched for .git the same way `git rev-parse --is-inside-work-tree` does.
func Inspect(root string) (*model.WorkingTree, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	tree := &model.WorkingTree{Root: absRoot}

	repo, err := git.PlainOpenWithOptions(absRoot, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return tree, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", absRoot, err)
	}
	tree.Versioned = true

	// Read HEAD without resolving it, so an unborn branch (fresh init, no
	// commits) still reports its name.
	head, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return nil, fmt.Errorf("failed to read HEAD: %w", err)
	}
	if head.Type() == plumbing.SymbolicReference && head.Target().IsBranch() {
		tree.Branch = head.Target().Short()
	}

	remote, err := repo.Remote(model.DefaultRemoteName)
	switch {
	case errors.Is(err, git.ErrRemoteNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to read remote %s: %w", model.DefaultRemoteName, err)
	default:
		binding := &model.RemoteBinding{Name: model.DefaultRemoteName}
		if urls := remote.Config().URLs; len(urls) > 0 {
			binding.URL = urls[0]
		}
		tree.Remote = binding
	}

	return tree, nil
}
