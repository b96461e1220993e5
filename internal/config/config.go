package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/contractbot-workspace/internal/model"
)

const (
	// FileName is the optional YAML settings file at the working-tree root.
	FileName = "workspace.yaml"

	// DotEnvName is the optional dotenv file at the working-tree root.
	DotEnvName = ".env"
)

// Environment variable names. BRANCH keeps the name the deployment scripts
// have always used.
const (
	EnvRoot          = "CONTRACTBOT_ROOT"
	EnvRemoteURL     = "CONTRACTBOT_REMOTE_URL"
	EnvBranch        = "BRANCH"
	EnvPython        = "CONTRACTBOT_PYTHON"
	EnvVenv          = "CONTRACTBOT_VENV"
	EnvRequirements  = "CONTRACTBOT_REQUIREMENTS"
	EnvServiceModule = "CONTRACTBOT_SERVICE_MODULE"
	EnvServiceConfig = "CONTRACTBOT_SERVICE_CONFIG"
)

// LookupFunc reads one environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Config holds the resolved settings. Path fields are absolute once Load
// returns.
type Config struct {
	// Root is the absolute working-tree root. It is never read from a file.
	Root string `yaml:"-" json:"root"`

	// RemoteURL is used when no URL is given on the command line.
	RemoteURL string `yaml:"remote_url" json:"remote_url,omitempty"`

	Branch string `yaml:"branch" json:"branch"`

	// Python is the interpreter hint. Empty means the platform default.
	Python string `yaml:"python" json:"python,omitempty"`

	Venv         string        `yaml:"venv" json:"venv"`
	Requirements string        `yaml:"requirements" json:"requirements"`
	Service      ServiceConfig `yaml:"service" json:"service"`
}

// ServiceConfig describes how the service is started after bootstrap.
type ServiceConfig struct {
	Module string `yaml:"module" json:"module"`
	Config string `yaml:"config" json:"config"`
}

// Defaults returns the built-in layer for root.
func Defaults(root string) *Config {
	return &Config{
		Root:         root,
		Branch:       model.DefaultBranch,
		Venv:         model.DefaultVenvDir,
		Requirements: model.DefaultManifest,
		Service: ServiceConfig{
			Module: model.DefaultServiceModule,
			Config: model.DefaultServiceConfig,
		},
	}
}

// ResolveRoot picks the working-tree root: the flag value, then
// CONTRACTBOT_ROOT, then the current directory. The result is absolute.
func ResolveRoot(flagValue string, lookup LookupFunc) (string, error) {
	root := flagValue
	if root == "" && lookup != nil {
		root, _ = lookup(EnvRoot)
	}
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", model.WrapKindError(model.KindUsage, "cannot determine the working directory", err)
		}
		root = wd
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return "", model.WrapKindError(model.KindUsage, fmt.Sprintf("invalid root %q", root), err)
	}
	return abs, nil
}

// Load layers defaults, workspace.yaml, .env and the environment for the
// given absolute root. A nil lookup skips the environment layer.
func Load(root string, lookup LookupFunc) (*Config, error) {
	if !filepath.IsAbs(root) {
		return nil, model.NewKindError(model.KindUsage,
			fmt.Sprintf("working tree root must be an absolute path, got %q", root))
	}

	cfg := Defaults(filepath.Clean(root))

	if err := cfg.loadFile(filepath.Join(cfg.Root, FileName)); err != nil {
		return nil, err
	}

	dotenv, err := readDotEnv(filepath.Join(cfg.Root, DotEnvName))
	if err != nil {
		return nil, err
	}
	cfg.applyEnv(func(key string) (string, bool) {
		v, ok := dotenv[key]
		return v, ok
	})

	if lookup != nil {
		cfg.applyEnv(lookup)
	}

	cfg.finish()
	return cfg, nil
}

// loadFile merges workspace.yaml over cfg. A missing file is not an error;
// unknown keys are.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return model.WrapKindError(model.KindUsage, fmt.Sprintf("failed to read %s", path), err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return model.WrapKindError(model.KindUsage, fmt.Sprintf("invalid %s", path), err)
	}
	return nil
}

func readDotEnv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, model.WrapKindError(model.KindUsage, fmt.Sprintf("invalid %s", path), err)
	}
	return vars, nil
}

// applyEnv overrides every field whose variable is set and non-blank.
func (c *Config) applyEnv(lookup LookupFunc) {
	for key, field := range map[string]*string{
		EnvRemoteURL:     &c.RemoteURL,
		EnvBranch:        &c.Branch,
		EnvPython:        &c.Python,
		EnvVenv:          &c.Venv,
		EnvRequirements:  &c.Requirements,
		EnvServiceModule: &c.Service.Module,
		EnvServiceConfig: &c.Service.Config,
	} {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*field = strings.TrimSpace(v)
		}
	}
}

// finish restores defaults blanked out by a file layer and makes paths
// absolute.
func (c *Config) finish() {
	def := Defaults(c.Root)
	for _, f := range []struct{ got, def *string }{
		{&c.Branch, &def.Branch},
		{&c.Venv, &def.Venv},
		{&c.Requirements, &def.Requirements},
		{&c.Service.Module, &def.Service.Module},
		{&c.Service.Config, &def.Service.Config},
	} {
		if strings.TrimSpace(*f.got) == "" {
			*f.got = *f.def
		}
	}

	c.Venv = model.ResolvePath(c.Root, c.Venv)
	c.Requirements = model.ResolvePath(c.Root, c.Requirements)
	c.Service.Config = model.ResolvePath(c.Root, c.Service.Config)
}

// Path resolves a flag-supplied path the same way file and environment
// values are resolved.
func (c *Config) Path(p string) string {
	return model.ResolvePath(c.Root, p)
}
