// Package config loads engine settings from a TOML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"mediatidy/pkg/classify"
)

// Config holds every tunable of the engine. Missing keys keep their
// defaults.
type Config struct {
	// Quarantine is the default quarantine directory. Empty means junk
	// is deleted unless --quarantine is given on the command line.
	Quarantine string `toml:"quarantine"`

	TMDB       TMDBConfig       `toml:"tmdb"`
	Subtitles  SubtitlesConfig  `toml:"subtitles"`
	Extensions ExtensionsConfig `toml:"extensions"`
}

type TMDBConfig struct {
	// APIKey enables year lookups. The TMDB_API_KEY environment
	// variable takes precedence when set.
	APIKey string `toml:"api_key"`
}

type SubtitlesConfig struct {
	// ReleaseOnlyFiltering limits non-English subtitle removal to
	// release folders. Off, filtering applies to the whole tree.
	ReleaseOnlyFiltering bool `toml:"release_only_filtering"`
}

type ExtensionsConfig struct {
	// Keep lists extensions exempt from junk handling (".nfo", ".txt").
	Keep []string `toml:"keep"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Subtitles: SubtitlesConfig{ReleaseOnlyFiltering: true},
	}
}

// Load reads the file at path. The file must exist; use LoadDefault
// for the optional per-user config.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadDefault reads the per-user config file when present and falls
// back to defaults when it is not.
func LoadDefault() (*Config, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		cfg := Default()
		cfg.applyEnv()
		return cfg, nil
	}

	path := filepath.Join(dir, "mediatidy", "config.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		cfg.applyEnv()
		return cfg, nil
	}
	return Load(path)
}

func (c *Config) applyEnv() {
	if key := os.Getenv("TMDB_API_KEY"); key != "" {
		c.TMDB.APIKey = key
	}
}

// Rules builds the classification rule set with the configured
// extension overrides applied.
func (c *Config) Rules() *classify.Rules {
	rules := classify.DefaultRules()
	for _, ext := range c.Extensions.Keep {
		if ext == "" {
			continue
		}
		ext = strings.ToLower(ext)
		if ext[0] != '.' {
			ext = "." + ext
		}
		rules.KeepExts[ext] = true
	}
	return rules
}
