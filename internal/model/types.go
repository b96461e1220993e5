// Package model defines the domain types for the contractbot-workspace CLI.
//
// The types in this package describe the two pieces of on-disk state the
// lifecycle controller reconciles: the git working tree holding the service
// source, and the Python virtual environment the service runs in.
package model

import "path/filepath"

const (
	// DefaultBranch is the branch synchronized when neither the BRANCH
	// environment variable nor --branch supplies one.
	DefaultBranch = "main"

	// DefaultRemoteName is the only remote binding the Synchronizer manages.
	DefaultRemoteName = "origin"

	// DefaultVenvDir is the virtual environment directory, relative to the
	// working-tree root.
	DefaultVenvDir = ".venv"

	// DefaultManifest is the dependency manifest, relative to the
	// working-tree root.
	DefaultManifest = "requirements.txt"

	// DefaultServiceModule is the Python module started by the handoff.
	DefaultServiceModule = "contractbot"

	// DefaultServiceConfig is the service configuration file, relative to
	// the working-tree root.
	DefaultServiceConfig = "config.json"
)

// SyncState represents a state of the Synchronizer's decision procedure.
// The transitions are:
//
//	Unknown → ExistingTree → Synced | Failed
//	Unknown → NoTree       → Synced | Failed
type SyncState string

const (
	// StateUnknown is the initial state before the root has been inspected.
	StateUnknown SyncState = "unknown"

	// StateExistingTree means the root is already under version control.
	StateExistingTree SyncState = "existing-tree"

	// StateNoTree means the root is not under version control (or does
	// not exist yet) and must be cloned.
	StateNoTree SyncState = "no-tree"

	// StateSynced is the terminal success state.
	StateSynced SyncState = "synced"

	// StateFailed is the terminal failure state.
	StateFailed SyncState = "failed"
)

// String returns the string representation of SyncState.
func (s SyncState) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition can leave this state.
func (s SyncState) IsTerminal() bool {
	return s == StateSynced || s == StateFailed
}

// RemoteBinding is a named pointer from a working tree to a remote
// repository URL. A WorkingTree has at most one binding (origin).
type RemoteBinding struct {
	// Name is the git remote name, always DefaultRemoteName.
	Name string `json:"name"`

	// URL is the fetch URL configured for the remote.
	URL string `json:"url"`
}

// WorkingTree describes the local directory holding a checked-out copy of
// the service source.
type WorkingTree struct {
	// Root is the absolute path to the working-tree root.
	Root string `json:"root"`

	// Versioned reports whether Root is a git repository.
	Versioned bool `json:"versioned"`

	// Branch is the current branch. Empty when Versioned is false or HEAD
	// is detached.
	Branch string `json:"branch,omitempty"`

	// Remote is the origin binding, nil when none is configured.
	Remote *RemoteBinding `json:"remote,omitempty"`
}

// VirtualEnvironment is an isolated Python runtime directory. Once created
// it persists across runs and is never recreated.
type VirtualEnvironment struct {
	// Path is the absolute path of the environment directory.
	Path string `json:"path"`

	// Python is the interpreter inside the environment. Empty until the
	// environment exists.
	Python string `json:"python,omitempty"`
}

// DependencyManifest is the requirements file handed to pip. It is not
// parsed or validated here.
type DependencyManifest struct {
	// Path is the absolute path of the manifest file.
	Path string `json:"path"`
}

// ResolvePath returns p unchanged when absolute, otherwise p joined onto
// root. An empty p resolves to the empty string.
func ResolvePath(root, p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}
