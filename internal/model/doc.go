// Package model defines the domain types and value objects for the
// contractbot-workspace CLI.
//
// This package contains pure data structures with no external dependencies.
// WorkingTree, RemoteBinding, VirtualEnvironment and DependencyManifest are
// transient descriptions of state that lives on disk (the git working tree
// and the Python virtual environment); nothing is persisted by this tool.
//
// The package also defines exit codes (ExitCode), error kinds (ErrorKind)
// and a custom error type (CLIError) that carries both, so the CLI layer can
// map any failure to a process exit status and a single diagnostic line.
package model
