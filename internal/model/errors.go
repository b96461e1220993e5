package model

import (
	"errors"
	"fmt"
)

// ExitCode defines the process exit codes of the CLI.
//
// Every lifecycle failure (usage, missing remote, git, interpreter, pip)
// exits with ExitGeneralError. Only the service handoff passes a different
// code through: the exit status of the service itself.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates any failure of the lifecycle controller.
	ExitGeneralError ExitCode = 1
)

// ErrorKind classifies a failure. The kind is part of the diagnostic line
// and is what tests and callers match on via errors.Is.
type ErrorKind string

const (
	// KindUsage is a missing required argument for the current state,
	// e.g. no remote URL for an empty root.
	KindUsage ErrorKind = "usage"

	// KindRemoteConfig means no URL is available to configure an absent
	// origin remote.
	KindRemoteConfig ErrorKind = "remote-config"

	// KindVCSOperation is a failed clone, fetch or pull.
	KindVCSOperation ErrorKind = "vcs-operation"

	// KindEnvironment means the interpreter or the virtual environment
	// could not be resolved or created.
	KindEnvironment ErrorKind = "environment"

	// KindDependencyInstall means the package manager reported failure.
	KindDependencyInstall ErrorKind = "dependency-install"

	// KindService is a failure of the downstream service handoff.
	KindService ErrorKind = "service"
)

// Sentinels for errors.Is matching. A CLIError of a given kind matches the
// sentinel of that kind.
var (
	ErrUsage             = errors.New("usage error")
	ErrRemoteConfig      = errors.New("remote configuration error")
	ErrVCSOperation      = errors.New("version control operation failed")
	ErrEnvironment       = errors.New("runtime environment error")
	ErrDependencyInstall = errors.New("dependency installation failed")
	ErrService           = errors.New("service handoff failed")
)

// Sentinel returns the errors.Is target for the kind, nil for an unknown kind.
func (k ErrorKind) Sentinel() error {
	switch k {
	case KindUsage:
		return ErrUsage
	case KindRemoteConfig:
		return ErrRemoteConfig
	case KindVCSOperation:
		return ErrVCSOperation
	case KindEnvironment:
		return ErrEnvironment
	case KindDependencyInstall:
		return ErrDependencyInstall
	case KindService:
		return ErrService
	default:
		return nil
	}
}

// String returns the string representation of ErrorKind.
func (k ErrorKind) String() string {
	return string(k)
}

// CLIError is a custom error type that carries an exit code and a kind.
// This allows the CLI layer to translate domain errors into appropriate
// process exit codes without inspecting message text.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Kind classifies the failure. Empty for unclassified errors.
	Kind ErrorKind

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *CLIError) Is(target error) bool {
	sentinel := e.Kind.Sentinel()
	return sentinel != nil && target == sentinel
}

// NewKindError creates a lifecycle failure of the given kind. Lifecycle
// failures always exit with ExitGeneralError.
func NewKindError(kind ErrorKind, message string) *CLIError {
	return &CLIError{Code: ExitGeneralError, Kind: kind, Message: message}
}

// WrapKindError creates a lifecycle failure of the given kind wrapping err.
func WrapKindError(kind ErrorKind, message string, err error) *CLIError {
	return &CLIError{Code: ExitGeneralError, Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the outermost classified CLIError in err's
// chain, or the empty kind when there is none.
func KindOf(err error) ErrorKind {
	var cliErr *CLIError
	for errors.As(err, &cliErr) {
		if cliErr.Kind != "" {
			return cliErr.Kind
		}
		err = cliErr.Err
	}
	return ""
}
