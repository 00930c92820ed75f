// Package config loads corel settings from TOML, YAML or JSON files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/panbanda/corel/internal/export"
	"github.com/panbanda/corel/internal/output"
	"github.com/panbanda/corel/pkg/analyzer/merge"
)

// Config holds all configuration options for corel.
type Config struct {
	Collect CollectConfig `koanf:"collect" toml:"collect"`
	Merge   MergeConfig   `koanf:"merge" toml:"merge"`
	Export  ExportConfig  `koanf:"export" toml:"export"`
	Cache   CacheConfig   `koanf:"cache" toml:"cache"`
	Output  OutputConfig  `koanf:"output" toml:"output"`
}

// CollectConfig filters the history read from the repository.
type CollectConfig struct {
	Branch        string   `koanf:"branch" toml:"branch"`
	Limit         int      `koanf:"limit" toml:"limit"`
	Extensions    []string `koanf:"extensions" toml:"extensions"`
	IgnoreStrings []string `koanf:"ignore_strings" toml:"ignore_strings"`
	TempDir       string   `koanf:"temp_dir" toml:"temp_dir"`
	PreserveTemp  bool     `koanf:"preserve_temp" toml:"preserve_temp"`
}

// MergeConfig selects how revisions are grouped.
type MergeConfig struct {
	Method                 string `koanf:"method" toml:"method"`
	WindowSeconds          int    `koanf:"window_seconds" toml:"window_seconds"`
	DistanceMode           string `koanf:"distance_mode" toml:"distance_mode"`
	IgnoreSingleFileGroups bool   `koanf:"ignore_single_file_groups" toml:"ignore_single_file_groups"`
	MaxDistinctPackages    int    `koanf:"max_distinct_packages" toml:"max_distinct_packages"`
}

// Window returns the merge window as a duration.
func (m MergeConfig) Window() time.Duration {
	return time.Duration(m.WindowSeconds) * time.Second
}

// ExportConfig controls where relations are written.
type ExportConfig struct {
	Type     string `koanf:"type" toml:"type"`
	Path     string `koanf:"path" toml:"path"`
	OnExists string `koanf:"on_exists" toml:"on_exists"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // TTL in hours
}

// OutputConfig controls console output.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format"` // text, json, markdown, toon
	Color  bool   `koanf:"color" toml:"color"`
	Top    int    `koanf:"top" toml:"top"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Collect: CollectConfig{
			Extensions:    []string{"java"},
			IgnoreStrings: []string{"test", "example", "docs"},
			TempDir:       "git_temp",
		},
		Merge: MergeConfig{
			Method:              string(merge.MethodWindow),
			WindowSeconds:       int(merge.DefaultWindow / time.Second),
			DistanceMode:        string(merge.DistanceFaithful),
			MaxDistinctPackages: 5,
		},
		Export: ExportConfig{
			Type:     string(export.TypeCSV),
			OnExists: string(export.OnExistsNumbering),
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".corel/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format: string(output.FormatText),
			Color:  true,
			Top:    20,
		},
	}
}

// Load loads configuration from a file on top of the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	// Lists from the file replace the defaults instead of merging into them.
	if k.Exists("collect.extensions") {
		cfg.Collect.Extensions = nil
	}
	if k.Exists("collect.ignore_strings") {
		cfg.Collect.IgnoreStrings = nil
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	return cfg, nil
}

var (
	configNames = []string{
		"corel.toml",
		"corel.yaml",
		"corel.yml",
		"corel.json",
		".corel.toml",
		".corel.yaml",
		".corel.yml",
		".corel.json",
	}
	searchDirs = []string{".", ".corel"}
)

// Find returns the first config file in the standard locations below root,
// or "" when there is none.
func Find(root string) string {
	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(root, dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}

// Resolve loads path when set, else the first config file in the standard
// locations, else the defaults. source is the file used, or "".
func Resolve(path string) (cfg *Config, source string, err error) {
	if path == "" {
		path = Find(".")
	}
	if path == "" {
		return DefaultConfig(), "", nil
	}
	cfg, err = Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	cfg, _, err := Resolve("")
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	if c.Collect.Limit < 0 {
		errs = append(errs, fmt.Errorf("collect.limit must not be negative, got %d", c.Collect.Limit))
	}
	if _, err := merge.ParseMethod(c.Merge.Method); err != nil {
		errs = append(errs, fmt.Errorf("merge.method: %w", err))
	}
	if c.Merge.WindowSeconds < 0 {
		errs = append(errs, fmt.Errorf("merge.window_seconds must not be negative, got %d", c.Merge.WindowSeconds))
	}
	if _, err := merge.ParseDistanceMode(c.Merge.DistanceMode); err != nil {
		errs = append(errs, fmt.Errorf("merge.distance_mode: %w", err))
	}
	if c.Merge.MaxDistinctPackages < 0 {
		errs = append(errs, fmt.Errorf("merge.max_distinct_packages must not be negative, got %d", c.Merge.MaxDistinctPackages))
	}
	if _, err := export.ParseType(c.Export.Type); err != nil {
		errs = append(errs, fmt.Errorf("export.type: %w", err))
	}
	if _, err := export.ParseOnExists(c.Export.OnExists); err != nil {
		errs = append(errs, fmt.Errorf("export.on_exists: %w", err))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must not be negative, got %d", c.Cache.TTL))
	}
	if c.Cache.Enabled && c.Cache.Dir == "" {
		errs = append(errs, errors.New("cache.dir is required when the cache is enabled"))
	}
	if !isFormat(c.Output.Format) {
		errs = append(errs, fmt.Errorf("output.format %q is not one of text, json, markdown, toon", c.Output.Format))
	}
	if c.Output.Top < 0 {
		errs = append(errs, fmt.Errorf("output.top must not be negative, got %d", c.Output.Top))
	}

	return errors.Join(errs...)
}

func isFormat(s string) bool {
	switch strings.ToLower(s) {
	case "", "md":
		return true
	}
	for _, f := range output.Formats {
		if strings.EqualFold(s, string(f)) {
			return true
		}
	}
	return false
}
