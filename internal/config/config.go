// Package config resolves vekta's configuration from environment
// variables, a YAML file, and built-in defaults, in that precedence
// order (environment wins over file, file wins over defaults).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrConfig wraps every configuration validation failure; callers map
// it to exit code 1.
var ErrConfig = errors.New("configuration error")

const (
	dirName  = ".vekta"
	fileName = "config.yaml"
)

// Config is the resolved configuration for one invocation.
type Config struct {
	Path              string `yaml:"path"`
	Dimensions        int    `yaml:"dimensions"`
	LabelSize         int    `yaml:"label_size"`
	TopK              int    `yaml:"top_k"`
	SearchMethod      string `yaml:"search_method"`
	AnnNumProjections int    `yaml:"ann_num_projections"`
	Verbose           bool   `yaml:"verbose"`
	AnnPersistIndex   bool   `yaml:"ann_persist_index"`
	ListGrep          string `yaml:"list_grep"`
}

// Defaults returns the built-in configuration defaults.
func Defaults() Config {
	return Config{
		Path:              "./vekta.bin",
		Dimensions:        384,
		LabelSize:         32,
		TopK:              10,
		SearchMethod:      "exact",
		AnnNumProjections: 20,
		Verbose:           false,
		AnnPersistIndex:   false,
		ListGrep:          "",
	}
}

// FilePath returns the default config file location: ~/.vekta/config.yaml.
func FilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, dirName, fileName)
}

// Load resolves the configuration: defaults, then the YAML file at
// path (if it exists — a missing file is not an error), then
// environment variable overrides. An empty path uses FilePath().
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		path = FilePath()
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", ErrConfig, path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrConfig, path, err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("VEKTA_PATH"); v != "" {
		cfg.Path = v
	}
	if v, ok := envInt("VEKTA_DIMENSIONS"); ok {
		cfg.Dimensions = v
	}
	if v, ok := envInt("VEKTA_LABEL_SIZE"); ok {
		cfg.LabelSize = v
	}
	if v, ok := envInt("VEKTA_TOP_K"); ok {
		cfg.TopK = v
	}
	if v := os.Getenv("VEKTA_SEARCH_METHOD"); v != "" {
		cfg.SearchMethod = v
	}
	if v, ok := envInt("VEKTA_ANN_NUM_PROJECTIONS"); ok {
		cfg.AnnNumProjections = v
	}
	if v, ok := envBool("VEKTA_VERBOSE"); ok {
		cfg.Verbose = v
	}
	if v, ok := envBool("VEKTA_ANN_PERSIST_INDEX"); ok {
		cfg.AnnPersistIndex = v
	}
	if v := os.Getenv("VEKTA_LIST_GREP"); v != "" {
		cfg.ListGrep = v
	}
}

func envInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envBool(key string) (bool, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// Validate checks the invariants spec.md requires of the resolved
// configuration: D divisible by 8, and search_method one of the two
// recognized values.
func (c *Config) Validate() error {
	if c.Dimensions <= 0 || c.Dimensions%8 != 0 {
		return fmt.Errorf("%w: dimensions must be a positive multiple of 8, got %d", ErrConfig, c.Dimensions)
	}
	if c.LabelSize <= 0 {
		return fmt.Errorf("%w: label_size must be positive, got %d", ErrConfig, c.LabelSize)
	}
	if c.SearchMethod != "exact" && c.SearchMethod != "ann" {
		return fmt.Errorf("%w: search_method must be \"exact\" or \"ann\", got %q", ErrConfig, c.SearchMethod)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrConfig, c.TopK)
	}
	return nil
}

// AsKeyValues renders the configuration as key/value pairs for the
// `config` command, in the same order as spec.md's configuration table.
func (c *Config) AsKeyValues() [][2]string {
	return [][2]string{
		{"path", c.Path},
		{"dimensions", strconv.Itoa(c.Dimensions)},
		{"label_size", strconv.Itoa(c.LabelSize)},
		{"top_k", strconv.Itoa(c.TopK)},
		{"search_method", c.SearchMethod},
		{"ann_num_projections", strconv.Itoa(c.AnnNumProjections)},
		{"verbose", strconv.FormatBool(c.Verbose)},
		{"ann_persist_index", strconv.FormatBool(c.AnnPersistIndex)},
		{"list_grep", c.ListGrep},
	}
}
