// Package config resolves the settings of one contractbot-workspace run.
//
// Settings are layered, later layers winning:
//
//  1. built-in defaults
//  2. <root>/workspace.yaml
//  3. <root>/.env
//  4. the process environment
//  5. command-line flags (applied by the caller)
//
// The .env file is read into a map; it never modifies the process
// environment.
package config
