package syncer

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/contractbot-workspace/internal/gitrepo"
	"github.com/shinji-kodama/contractbot-workspace/internal/model"
	"github.com/shinji-kodama/contractbot-workspace/internal/runner"
)

const (
	root = "/srv/contractbot"
	url  = "https://example.com/contractbot.git"

	revParse   = "git -C /srv/contractbot rev-parse --is-inside-work-tree"
	getURL     = "git -C /srv/contractbot remote get-url origin"
	addOrigin  = "git -C /srv/contractbot remote add origin " + url
	setOrigin  = "git -C /srv/contractbot remote set-url origin " + url
	fetchMain  = "git -C /srv/contractbot fetch origin main"
	pullMain   = "git -C /srv/contractbot pull --rebase origin main"
	cloneMain  = "git clone --branch main -- " + url + " /srv/contractbot"
	noRepo     = "fatal: not a git repository (or any of the parent directories): .git"
	noSuchRmt  = "error: No such remote 'origin'"
	insideTree = "true\n"
)

// assertLines compares the recorded git command lines with want.
func assertLines(t *testing.T, f *runner.FakeRunner, want []string) {
	t.Helper()
	if diff := cmp.Diff(want, f.Lines()); diff != "" {
		t.Errorf("git invocations mismatch (-want +got):\n%s", diff)
	}
}

func states(res *Result) []model.SyncState {
	out := []model.SyncState{model.StateUnknown}
	for _, tr := range res.Transitions {
		out = append(out, tr.To)
	}
	return out
}

// TestSynchronize_ClonePath covers an empty root with a URL: the tree is
// cloned with the default branch checked out.
func TestSynchronize_ClonePath(t *testing.T) {
	f := runner.NewFakeRunner().Fail(revParse, noRepo)

	res, err := New(f, nil).Synchronize(context.Background(), Options{Root: root, RemoteURL: url})
	require.NoError(t, err)

	assertLines(t, f, []string{revParse, cloneMain})
	assert.Equal(t, model.StateSynced, res.State)
	assert.True(t, res.Cloned)
	assert.Equal(t, "main", res.Branch)
	assert.Equal(t, url, res.RemoteURL)
	assert.Equal(t, []model.SyncState{model.StateUnknown, model.StateNoTree, model.StateSynced}, states(res))
}

// TestSynchronize_CloneBranchOverride verifies the branch is checked out at
// clone time when overridden.
func TestSynchronize_CloneBranchOverride(t *testing.T) {
	f := runner.NewFakeRunner().Fail(revParse, noRepo)

	_, err := New(f, nil).Synchronize(context.Background(), Options{Root: root, RemoteURL: url, Branch: "develop"})
	require.NoError(t, err)

	assertLines(t, f, []string{revParse, "git clone --branch develop -- " + url + " /srv/contractbot"})
}

// TestSynchronize_ClonePopulatedRoot clones in place when the root already
// holds the workspace configuration.
func TestSynchronize_ClonePopulatedRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "workspace.yaml"), []byte("branch: release\n"), 0644))
	git := "git -C " + dir + " "
	f := runner.NewFakeRunner().Fail(git+"rev-parse --is-inside-work-tree", noRepo)

	res, err := New(f, nil).Synchronize(context.Background(), Options{Root: dir, RemoteURL: url, Branch: "release"})
	require.NoError(t, err)

	assertLines(t, f, []string{
		git + "rev-parse --is-inside-work-tree",
		git + "init",
		git + "remote add origin " + url,
		git + "fetch origin release",
		git + "checkout -B release origin/release",
	})
	assert.True(t, res.Cloned)
	assert.Equal(t, model.StateSynced, res.State)
}

// TestSynchronize_NoTreeWithoutURL is a usage error: nothing to clone from.
func TestSynchronize_NoTreeWithoutURL(t *testing.T) {
	f := runner.NewFakeRunner().Fail(revParse, noRepo)

	res, err := New(f, nil).Synchronize(context.Background(), Options{Root: root})
	require.Error(t, err)

	assert.True(t, errors.Is(err, model.ErrUsage))
	assert.Equal(t, model.StateFailed, res.State)
	assertLines(t, f, []string{revParse})
}

// TestSynchronize_MissingRemote covers an existing tree with no origin and
// no URL: RemoteConfigError, and nothing is fetched or bound.
func TestSynchronize_MissingRemote(t *testing.T) {
	f := runner.NewFakeRunner().
		Succeed(revParse, insideTree).
		Fail(getURL, noSuchRmt)

	res, err := New(f, nil).Synchronize(context.Background(), Options{Root: root})
	require.Error(t, err)

	assert.True(t, errors.Is(err, model.ErrRemoteConfig))
	assert.Equal(t, model.KindRemoteConfig, model.KindOf(err))
	assert.Equal(t, model.StateFailed, res.State)
	assert.Equal(t, []model.SyncState{model.StateUnknown, model.StateExistingTree, model.StateFailed}, states(res))
	assertLines(t, f, []string{revParse, getURL})
}

// TestSynchronize_ExistingTreeAddsOrigin binds a missing origin before
// fetching.
func TestSynchronize_ExistingTreeAddsOrigin(t *testing.T) {
	f := runner.NewFakeRunner().
		Succeed(revParse, insideTree).
		Fail(getURL, noSuchRmt).
		Succeed(getURL, url+"\n")

	res, err := New(f, nil).Synchronize(context.Background(), Options{Root: root, RemoteURL: url})
	require.NoError(t, err)

	assertLines(t, f, []string{revParse, getURL, addOrigin, getURL, fetchMain, pullMain})
	assert.Equal(t, model.StateSynced, res.State)
	assert.False(t, res.Cloned)
	assert.Equal(t, url, res.RemoteURL)
}

// TestSynchronize_ExistingTreeRepointsOrigin replaces an existing binding.
func TestSynchronize_ExistingTreeRepointsOrigin(t *testing.T) {
	f := runner.NewFakeRunner().
		Succeed(revParse, insideTree).
		Succeed(getURL, "https://old.example.com/contractbot.git\n").
		Succeed(getURL, url+"\n")

	res, err := New(f, nil).Synchronize(context.Background(), Options{Root: root, RemoteURL: url})
	require.NoError(t, err)

	assertLines(t, f, []string{revParse, getURL, setOrigin, getURL, fetchMain, pullMain})
	assert.Equal(t, url, res.RemoteURL)
}

// TestSynchronize_BranchOverride fetches and rebases develop, not main.
func TestSynchronize_BranchOverride(t *testing.T) {
	f := runner.NewFakeRunner().
		Succeed(revParse, insideTree).
		Succeed(getURL, url+"\n")

	res, err := New(f, nil).Synchronize(context.Background(), Options{Root: root, Branch: "develop"})
	require.NoError(t, err)

	assertLines(t, f, []string{
		revParse,
		getURL,
		"git -C /srv/contractbot fetch origin develop",
		"git -C /srv/contractbot pull --rebase origin develop",
	})
	assert.Equal(t, "develop", res.Branch)
	assert.False(t, f.Ran(fetchMain))
}

// TestSynchronize_FetchFailure stops before the pull.
func TestSynchronize_FetchFailure(t *testing.T) {
	f := runner.NewFakeRunner().
		Succeed(revParse, insideTree).
		Succeed(getURL, url+"\n").
		Fail(fetchMain, "fatal: couldn't find remote ref main")

	res, err := New(f, nil).Synchronize(context.Background(), Options{Root: root})
	require.Error(t, err)

	assert.True(t, errors.Is(err, model.ErrVCSOperation))
	assert.Contains(t, err.Error(), "couldn't find remote ref main")
	assert.Equal(t, model.StateFailed, res.State)
	assertLines(t, f, []string{revParse, getURL, fetchMain})
}

// TestSynchronize_RebaseConflict is a plain VCS failure: no abort, no
// resolution attempt.
func TestSynchronize_RebaseConflict(t *testing.T) {
	f := runner.NewFakeRunner().
		Succeed(revParse, insideTree).
		Succeed(getURL, url+"\n").
		Fail(pullMain, "CONFLICT (content): Merge conflict in contractbot/config.py")

	_, err := New(f, nil).Synchronize(context.Background(), Options{Root: root})
	require.Error(t, err)

	assert.True(t, errors.Is(err, model.ErrVCSOperation))
	assertLines(t, f, []string{revParse, getURL, fetchMain, pullMain})
}

func TestSynchronize_CloneFailure(t *testing.T) {
	f := runner.NewFakeRunner().
		Fail(revParse, noRepo).
		Fail(cloneMain, "fatal: repository not found")

	res, err := New(f, nil).Synchronize(context.Background(), Options{Root: root, RemoteURL: url})
	require.Error(t, err)

	assert.True(t, errors.Is(err, model.ErrVCSOperation))
	assert.False(t, res.Cloned)
	assert.Equal(t, model.StateFailed, res.State)
}

// TestSynchronize_RelativeRoot rejects a root that is not absolute without
// running anything.
func TestSynchronize_RelativeRoot(t *testing.T) {
	f := runner.NewFakeRunner()

	res, err := New(f, nil).Synchronize(context.Background(), Options{Root: "contractbot", RemoteURL: url})
	require.Error(t, err)

	assert.True(t, errors.Is(err, model.ErrUsage))
	assert.Equal(t, model.StateFailed, res.State)
	assert.Empty(t, f.Calls)
}

// TestSynchronize_Idempotent runs twice against an unchanged remote; both
// runs succeed with the same terminal state and the same git calls.
func TestSynchronize_Idempotent(t *testing.T) {
	f := runner.NewFakeRunner().
		Succeed(revParse, insideTree).
		Succeed(getURL, url+"\n")
	s := New(f, nil)
	opts := Options{Root: root, RemoteURL: url}

	first, err := s.Synchronize(context.Background(), opts)
	require.NoError(t, err)
	firstLines := f.Lines()

	f.Calls = nil
	second, err := s.Synchronize(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstLines, f.Lines())
}

// TestSynchronize_Cancelled aborts on a cancelled context.
func TestSynchronize_Cancelled(t *testing.T) {
	f := runner.NewFakeRunner().Succeed(revParse, insideTree)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(f, nil).Synchronize(ctx, Options{Root: root, RemoteURL: url})
	require.Error(t, err)
	assert.Equal(t, model.StateFailed, res.State)
}

// --- integration against a real git binary ---

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH")
	}
}

func runTestGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, string(output))
}

// setupUpstream creates a repository with commits on main and develop.
func setupUpstream(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runTestGit(t, dir, "init")
	runTestGit(t, dir, "config", "user.email", "test@example.com")
	runTestGit(t, dir, "config", "user.name", "Test User")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("pillow\n"), 0644))
	runTestGit(t, dir, "add", ".")
	runTestGit(t, dir, "commit", "-m", "initial commit")
	runTestGit(t, dir, "branch", "-M", "main")
	runTestGit(t, dir, "branch", "develop")
	return dir
}

// TestSynchronize_RealClone exercises the clone path and a second,
// idempotent run against real repositories.
func TestSynchronize_RealClone(t *testing.T) {
	requireGit(t)
	upstream := setupUpstream(t)
	local := filepath.Join(t.TempDir(), "contractbot")
	s := New(runner.NewExecRunner(), nil)

	res, err := s.Synchronize(context.Background(), Options{Root: local, RemoteURL: upstream})
	require.NoError(t, err)
	assert.True(t, res.Cloned)

	tree, err := gitrepo.Inspect(local)
	require.NoError(t, err)
	assert.True(t, tree.Versioned)
	assert.Equal(t, "main", tree.Branch)
	require.NotNil(t, tree.Remote)
	assert.Equal(t, upstream, tree.Remote.URL)

	runTestGit(t, local, "config", "user.email", "test@example.com")
	runTestGit(t, local, "config", "user.name", "Test User")

	res, err = s.Synchronize(context.Background(), Options{Root: local})
	require.NoError(t, err)
	assert.False(t, res.Cloned)
	assert.Equal(t, model.StateSynced, res.State)
}

// TestSynchronize_RealClonePopulatedRoot clones into a root that already
// holds workspace.yaml, then updates it on a second run.
func TestSynchronize_RealClonePopulatedRoot(t *testing.T) {
	requireGit(t)
	upstream := setupUpstream(t)
	local := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(local, "workspace.yaml"), []byte("remote_url: "+upstream+"\n"), 0644))
	s := New(runner.NewExecRunner(), nil)

	res, err := s.Synchronize(context.Background(), Options{Root: local, RemoteURL: upstream})
	require.NoError(t, err)
	assert.True(t, res.Cloned)

	tree, err := gitrepo.Inspect(local)
	require.NoError(t, err)
	assert.True(t, tree.Versioned)
	assert.Equal(t, "main", tree.Branch)
	require.NotNil(t, tree.Remote)
	assert.Equal(t, upstream, tree.Remote.URL)

	_, err = os.Stat(filepath.Join(local, "requirements.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(local, "workspace.yaml"))
	assert.NoError(t, err)

	runTestGit(t, local, "config", "user.email", "test@example.com")
	runTestGit(t, local, "config", "user.name", "Test User")

	res, err = s.Synchronize(context.Background(), Options{Root: local})
	require.NoError(t, err)
	assert.False(t, res.Cloned)
	assert.Equal(t, model.StateSynced, res.State)
}

func TestSynchronize_RealCloneBranch(t *testing.T) {
	requireGit(t)
	upstream := setupUpstream(t)
	local := filepath.Join(t.TempDir(), "contractbot")

	_, err := New(runner.NewExecRunner(), nil).Synchronize(context.Background(),
		Options{Root: local, RemoteURL: upstream, Branch: "develop"})
	require.NoError(t, err)

	tree, err := gitrepo.Inspect(local)
	require.NoError(t, err)
	assert.Equal(t, "develop", tree.Branch)
}

// TestSynchronize_RealMissingRemote leaves the tree without a binding.
func TestSynchronize_RealMissingRemote(t *testing.T) {
	requireGit(t)
	local := setupUpstream(t)

	_, err := New(runner.NewExecRunner(), nil).Synchronize(context.Background(), Options{Root: local})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrRemoteConfig))

	tree, err := gitrepo.Inspect(local)
	require.NoError(t, err)
	assert.True(t, tree.Versioned)
	assert.Nil(t, tree.Remote)
}
