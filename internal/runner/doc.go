// Package runner abstracts subprocess execution for the contractbot-workspace
// CLI.
//
// Every external collaborator (git, the Python interpreter, pip) is invoked
// through the narrow Runner interface: "run this command, capture its status
// and output", plus executable lookup. ExecRunner is the os/exec-backed
// production implementation; FakeRunner records every call and replays
// scripted results so tests can assert on the exact command sequence without
// invoking real binaries.
package runner
