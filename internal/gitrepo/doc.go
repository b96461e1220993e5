// Package gitrepo provides the git operations the Synchronizer needs.
//
// Mutating operations (clone, remote add/set-url, fetch, pull --rebase) go
// through the git binary via runner.Runner, so the tree ends up exactly as
// the user's own git would leave it and tests can substitute a fake runner.
// Read-only inspection of a working tree (Inspect) uses go-git and needs no
// git binary at all.
package gitrepo
