package msd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// ConfigFileName is the project configuration file looked up by the CLI.
const ConfigFileName = "msd.toml"

// ProjectConfig represents an msd.toml file.
type ProjectConfig struct {
	// Mode is the default CLI mode, in any case style accepted by
	// ParseMode.
	Mode string `toml:"mode,omitempty"`

	// Color forces colored error output on or off.
	Color *bool `toml:"color,omitempty"`

	// Bindings are variables visible to every program run by the CLI.
	// Values must be integers or booleans.
	Bindings map[string]any `toml:"bindings,omitempty"`
}

// LoadProjectConfig loads an msd.toml file from the given path.
func LoadProjectConfig(path string) (*ProjectConfig, error) {
	var config ProjectConfig
	md, err := toml.DecodeFile(path, &config)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	for _, key := range md.Undecoded() {
		if len(key) > 0 && key[0] == "bindings" {
			continue
		}
		slog.Warn("unknown configuration key", "file", path, "key", key.String())
	}
	if config.Mode != "" {
		if _, err := ParseMode(config.Mode); err != nil {
			return nil, errors.Wrapf(err, "parsing %s", path)
		}
	}
	return &config, nil
}

// FindProjectConfig searches for msd.toml starting from dir and walking up
// to parent directories, stopping at a .git boundary. Returns the path and
// the parsed config, or ("", nil, nil) if not found.
func FindProjectConfig(dir string) (string, *ProjectConfig, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, errors.Wrap(err, "resolving config search directory")
	}
	for {
		path := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(path); err == nil {
			config, err := LoadProjectConfig(path)
			if err != nil {
				return "", nil, err
			}
			return path, config, nil
		}

		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return "", nil, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil, nil
		}
		dir = parent
	}
}

// Env builds the initial environment from the configured bindings. A nil
// config has no bindings.
func (c *ProjectConfig) Env() (*Env, error) {
	if c == nil {
		return EmptyEnv, nil
	}

	names := make([]string, 0, len(c.Bindings))
	for name := range c.Bindings {
		names = append(names, name)
	}
	sort.Strings(names)

	env := EmptyEnv
	for _, name := range names {
		if !isIdentifier(name) {
			return nil, fmt.Errorf("binding %q: not a valid variable name", name)
		}
		val, err := bindingValue(c.Bindings[name])
		if err != nil {
			return nil, errors.Wrapf(err, "binding %q", name)
		}
		env = env.Extend(name, val)
	}
	return env, nil
}

func bindingValue(raw any) (Value, error) {
	switch v := raw.(type) {
	case int64:
		if int64(int(v)) != v {
			return nil, fmt.Errorf("integer %d out of range", v)
		}
		return NumVal{Val: int(v)}, nil
	case bool:
		return BoolVal{Val: v}, nil
	default:
		return nil, fmt.Errorf("unsupported value %v of type %T (want integer or boolean)", raw, raw)
	}
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, c := range name {
		if !isLetter(c) {
			return false
		}
	}
	return true
}
