// Package service hands control to the Python service once the working
// tree and its environment are in place.
//
// Preflight checks the service configuration file before launch so a typo
// is reported by this tool rather than as a Python traceback. The Launcher
// runs `<venv-python> -m <module> <config>` with the caller's terminal
// attached and reports a non-zero exit as a service error carrying the
// child's exit code.
package service
