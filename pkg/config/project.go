package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ErrNotFound is returned when the project config file does not exist
var ErrNotFound = errors.New("config file not found")

// CurrentVersion is the config format version written by WriteDefault
const CurrentVersion = 1

// Config is the parsed project configuration (flint.toml). It is loaded once
// per invocation and treated as read-only afterwards.
type Config struct {
	Flint  FlintSection           `toml:"flint"`
	Common map[string]interface{} `toml:"common"`
	Rules  map[string]interface{} `toml:"rules"`
	Tests  map[string]interface{} `toml:"tests"`
	CI     map[string]interface{} `toml:"ci"`
	Report map[string]interface{} `toml:"report"`

	// Extra holds per-plugin tool configuration from the [config] table
	Extra map[string]interface{} `toml:"config"`
}

// FlintSection is the [flint] table
type FlintSection struct {
	Version int `toml:"version"`
}

// Default returns an empty configuration
func Default() *Config {
	c := &Config{Flint: FlintSection{Version: CurrentVersion}}
	c.fill()
	return c
}

// Load reads and parses the project config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse parses project config from TOML
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("failed to parse config at line %d, column %d: %w", row, col, err)
		}
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.fill()
	return &cfg, nil
}

// WriteDefault writes a default config file. It fails if path exists.
func WriteDefault(path string) error {
	data, err := toml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// HasPlugin reports whether id has a section under rules, tests, ci or report
func (c *Config) HasPlugin(id string) bool {
	for _, section := range []map[string]interface{}{c.Rules, c.Tests, c.CI, c.Report} {
		if _, ok := section[id]; ok {
			return true
		}
	}
	return false
}

// PluginIDs returns every plugin id enabled by the config, without duplicates
func (c *Config) PluginIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, section := range []map[string]interface{}{c.Rules, c.Tests, c.CI, c.Report} {
		for id := range section {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func (c *Config) fill() {
	for _, m := range []*map[string]interface{}{&c.Common, &c.Rules, &c.Tests, &c.CI, &c.Report, &c.Extra} {
		if *m == nil {
			*m = make(map[string]interface{})
		}
	}
}
