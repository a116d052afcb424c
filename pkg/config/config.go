// Package config handles loading and saving mw configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/mindwork/config.yaml
//   - State:   ~/.local/state/mindwork/ (snapshot wizard answers)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ViewConfig holds layout, animation and zoom settings.
type ViewConfig struct {
	Width           int     `yaml:"width,omitempty"`            // Layout extent along the depth axis
	Height          int     `yaml:"height,omitempty"`           // Layout extent along the breadth axis
	DepthSpacing    float64 `yaml:"depth_spacing,omitempty"`    // Distance between levels (default 180)
	DurationMS      int     `yaml:"duration_ms,omitempty"`      // Transition length (default 750)
	InitialScale    float64 `yaml:"initial_scale,omitempty"`    // Zoom of a freshly opened map (default 0.8)
	MinScale        float64 `yaml:"min_scale,omitempty"`        // Zoom extent lower bound (default 0.1)
	MaxScale        float64 `yaml:"max_scale,omitempty"`        // Zoom extent upper bound (default 8)
	InitialCollapse int     `yaml:"initial_collapse,omitempty"` // Depth from which nodes start collapsed (default 1, -1 = none)
}

// SourcesConfig lists where mind maps come from when no flag is given.
type SourcesConfig struct {
	Paths      []string `yaml:"paths,omitempty"`       // Files (json, yaml, sqlite)
	ScanDirs   []string `yaml:"scan_dirs,omitempty"`   // Directories of source files
	DefaultMap string   `yaml:"default_map,omitempty"` // Map ID opened at start
}

// WatchConfig controls live reload.
type WatchConfig struct {
	Enabled    *bool `yaml:"enabled,omitempty"`
	DebounceMS int   `yaml:"debounce_ms,omitempty"`
	ForcePoll  bool  `yaml:"force_poll,omitempty"`
}

// Config is the top-level configuration for mw.
type Config struct {
	View      ViewConfig     `yaml:"view,omitempty"`
	Sources   SourcesConfig  `yaml:"sources,omitempty"`
	Watch     WatchConfig    `yaml:"watch,omitempty"`
	Favorites map[int]string `yaml:"favorites,omitempty"` // Number key (1-9) -> map ID
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		View: ViewConfig{
			Width:           800,
			Height:          620,
			DepthSpacing:    180,
			DurationMS:      750,
			InitialScale:    0.8,
			MinScale:        0.1,
			MaxScale:        8,
			InitialCollapse: 1,
		},
		Watch: WatchConfig{
			DebounceMS: 250,
		},
		Favorites: make(map[int]string),
	}
}

// ConfigDir returns the XDG config directory for mw.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "mindwork")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "mindwork")
}

// StateDir returns the XDG state directory for mw.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "mindwork")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "mindwork")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}

	// Ensure favorites map is initialized
	if cfg.Favorites == nil {
		cfg.Favorites = make(map[int]string)
	}

	// Expand ~ in source paths
	for i := range cfg.Sources.Paths {
		cfg.Sources.Paths[i] = expandHome(cfg.Sources.Paths[i])
	}
	for i := range cfg.Sources.ScanDirs {
		cfg.Sources.ScanDirs[i] = expandHome(cfg.Sources.ScanDirs[i])
	}

	return cfg, nil
}

// Validate rejects settings the view cannot honor.
func (c Config) Validate() error {
	v := c.View
	if v.Width < 0 || v.Height < 0 {
		return fmt.Errorf("view size must not be negative (%dx%d)", v.Width, v.Height)
	}
	if v.MinScale < 0 || v.MaxScale < 0 || (v.MaxScale > 0 && v.MinScale > v.MaxScale) {
		return fmt.Errorf("zoom extent [%g, %g] is empty", v.MinScale, v.MaxScale)
	}
	if v.DurationMS < 0 {
		return fmt.Errorf("duration_ms must not be negative")
	}
	for n := range c.Favorites {
		if n < 1 || n > 9 {
			return fmt.Errorf("favorite key %d out of range 1-9", n)
		}
	}
	return nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Duration returns the transition length.
func (v ViewConfig) Duration() time.Duration {
	if v.DurationMS <= 0 {
		return 750 * time.Millisecond
	}
	return time.Duration(v.DurationMS) * time.Millisecond
}

// WatchEnabled reports whether live reload is on (default true).
func (c Config) WatchEnabled() bool {
	return c.Watch.Enabled == nil || *c.Watch.Enabled
}

// Debounce returns the watcher debounce window.
func (w WatchConfig) Debounce() time.Duration {
	if w.DebounceMS <= 0 {
		return 250 * time.Millisecond
	}
	return time.Duration(w.DebounceMS) * time.Millisecond
}

// SourcePaths returns every configured file and directory.
func (c Config) SourcePaths() []string {
	out := make([]string, 0, len(c.Sources.Paths)+len(c.Sources.ScanDirs))
	out = append(out, c.Sources.Paths...)
	out = append(out, c.Sources.ScanDirs...)
	return out
}

// FavoriteMap returns the map ID assigned to number key n (1-9), or "".
func (c Config) FavoriteMap(n int) string {
	return c.Favorites[n]
}

// SetFavorite assigns a map ID to a number key (1-9).
func (c *Config) SetFavorite(n int, mapID string) {
	if c.Favorites == nil {
		c.Favorites = make(map[int]string)
	}
	if mapID == "" {
		delete(c.Favorites, n)
	} else {
		c.Favorites[n] = mapID
	}
}

// MapFavoriteNumber returns the favorite number (1-9) for a map ID, or 0 if not favorited.
func (c Config) MapFavoriteNumber(id string) int {
	for n, mid := range c.Favorites {
		if strings.EqualFold(mid, id) {
			return n
		}
	}
	return 0
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
