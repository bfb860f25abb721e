package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultClasspathFile = "/etc/mysql/honeycomb/classpath.conf"
	DefaultOptionsFile   = "/etc/mysql/honeycomb/runtime-options.conf"
	DefaultFatalMessage  = "Failed to initialize adapter. Check honeycomb.log for details."
)

// Settings represents a honeycomb.toml file.
type Settings struct {
	Bootstrap Bootstrap `toml:"bootstrap"`
	Log       Log       `toml:"log"`
	Bridge    Bridge    `toml:"bridge"`

	// Path is the file the settings were loaded from (set at load time).
	Path string `toml:"-"`
}

// Bootstrap names the two bootstrap input files.
type Bootstrap struct {
	ClasspathFile string `toml:"classpath-file"`
	OptionsFile   string `toml:"options-file"`
}

// Log configures the process logger.
type Log struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// Bridge configures fatal escalation.
type Bridge struct {
	FatalMessage string `toml:"fatal-message"`
}

// DefaultSettings returns the settings used when no file is given.
func DefaultSettings() *Settings {
	s := &Settings{}
	s.applyDefaults()
	return s
}

// LoadSettings parses the TOML file at path. An empty path yields the
// defaults. Relative file names are resolved against the settings file's
// directory. Unknown keys are rejected.
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		return DefaultSettings(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var s Settings
	md, err := toml.Decode(string(data), &s)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	s.Path, err = filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	dir := filepath.Dir(s.Path)
	s.Bootstrap.ClasspathFile = resolve(dir, s.Bootstrap.ClasspathFile)
	s.Bootstrap.OptionsFile = resolve(dir, s.Bootstrap.OptionsFile)
	s.Log.File = resolve(dir, s.Log.File)

	s.applyDefaults()
	return &s, nil
}

func (s *Settings) applyDefaults() {
	if s.Bootstrap.ClasspathFile == "" {
		s.Bootstrap.ClasspathFile = DefaultClasspathFile
	}
	if s.Bootstrap.OptionsFile == "" {
		s.Bootstrap.OptionsFile = DefaultOptionsFile
	}
	if s.Log.Level == "" {
		s.Log.Level = "info"
	}
	if s.Bridge.FatalMessage == "" {
		s.Bridge.FatalMessage = DefaultFatalMessage
	}
}

func resolve(dir, name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}
