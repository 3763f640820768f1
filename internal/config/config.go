package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported feed formats.
const (
	FormatJSON = "json"
	FormatICS  = "ics"
)

// Count modes, mirrored from the engine so the config package stays a leaf.
const (
	CountModeBaseline = "baseline"
	CountModeLive     = "live"
)

// SourceConfig describes a single event feed.
type SourceConfig struct {
	// ID is an internal identifier used for de-dup, cache keys and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// URL is the feed endpoint. JSON feeds receive fecha_inicio/fecha_fin
	// query parameters covering the horizon.
	URL string `yaml:"url" json:"url"`
	// Format is "json" (default) or "ics".
	Format string `yaml:"format" json:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used to interpret dates and compute
	// "today" (e.g. "Europe/Madrid").
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a cron-style schedule for reloading the snapshot.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonDays is how many days ahead the feeds are asked for.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// DefaultWindowDays is the date window applied to API requests that set
	// neither bound. Zero disables the default window.
	DefaultWindowDays int `yaml:"default_window_days" json:"default_window_days"`

	// CountMode selects badge counts: "baseline" (frozen at load) or "live"
	// (recomputed from the filtered set).
	CountMode string `yaml:"count_mode" json:"count_mode"`

	// CacheDir holds per-feed HTTP cache entries.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// MemoSize bounds the number of memoized filter results.
	MemoSize int `yaml:"memo_size" json:"memo_size"`

	// LogLevel is "debug", "info" or "error".
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Disciplines is the discipline vocabulary. Labels outside it are counted
	// and filtered as the fallback discipline. Absent selects the built-in
	// vocabulary; an explicit empty list accepts any label.
	Disciplines []string `yaml:"disciplines,omitempty" json:"disciplines,omitempty"`

	// Sources is the list of event feeds.
	Sources []SourceConfig `yaml:"sources" json:"sources"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:            "127.0.0.1:8080",
		Timezone:          "Europe/Madrid",
		RefreshCron:       "*/30 * * * *",
		HorizonDays:       30,
		DefaultWindowDays: 7,
		CountMode:         CountModeBaseline,
		CacheDir:          "/var/lib/agenda/feed-cache",
		MemoSize:          256,
		LogLevel:          "info",
		Disciplines:       nil,
		Sources:           []SourceConfig{},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = def.HorizonDays
	}
	if c.DefaultWindowDays < 0 {
		c.DefaultWindowDays = 0
	}
	switch c.CountMode {
	case CountModeBaseline, CountModeLive:
		// ok
	default:
		c.CountMode = CountModeBaseline
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	if c.MemoSize <= 0 {
		c.MemoSize = def.MemoSize
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Sources == nil {
		c.Sources = []SourceConfig{}
	}
	for i := range c.Sources {
		s := &c.Sources[i]
		s.Format = strings.ToLower(strings.TrimSpace(s.Format))
		if s.Format == "" {
			s.Format = FormatJSON
		}
		if s.ID == "" {
			switch {
			case s.Name != "":
				s.ID = s.Name
			default:
				s.ID = s.URL
			}
		}
	}
}

// Validate reports configuration errors that Normalize cannot repair.
func (c *Config) Validate() error {
	var errs []error
	seen := make(map[string]struct{}, len(c.Sources))
	for i, s := range c.Sources {
		if s.URL == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: url is empty", i))
		}
		if s.Format != FormatJSON && s.Format != FormatICS {
			errs = append(errs, fmt.Errorf("sources[%d]: unknown format %q", i, s.Format))
		}
		if _, dup := seen[s.ID]; dup {
			errs = append(errs, fmt.Errorf("sources[%d]: duplicate id %q", i, s.ID))
		}
		seen[s.ID] = struct{}{}
	}
	return errors.Join(errs...)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults and validate
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".agenda-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
