package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.View.Width != 800 || cfg.View.Height != 620 {
		t.Errorf("expected 800x620 view, got %dx%d", cfg.View.Width, cfg.View.Height)
	}
	if cfg.View.Duration() != 750*time.Millisecond {
		t.Errorf("expected 750ms transitions, got %v", cfg.View.Duration())
	}
	if cfg.View.MinScale != 0.1 || cfg.View.MaxScale != 8 || cfg.View.InitialScale != 0.8 {
		t.Errorf("unexpected zoom defaults: %+v", cfg.View)
	}
	if cfg.View.InitialCollapse != 1 {
		t.Errorf("expected initial collapse depth 1, got %d", cfg.View.InitialCollapse)
	}
	if !cfg.WatchEnabled() {
		t.Error("expected watching to be enabled by default")
	}
	if cfg.Favorites == nil {
		t.Error("expected favorites map to be initialized")
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.View.DepthSpacing != 180 {
		t.Errorf("expected default config, got depth spacing %v", cfg.View.DepthSpacing)
	}
}

func TestLoadFrom_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
view:
  height: 900
  duration_ms: 300
  initial_collapse: 2

sources:
  paths:
    - ~/maps/processes.json
    - /absolute/maps.db
  scan_dirs:
    - ~/maps
  default_map: processes

watch:
  enabled: false
  debounce_ms: 100

favorites:
  1: processes
  2: components
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.View.Height != 900 || cfg.View.Width != 800 {
		t.Errorf("expected 800x900 (width defaulted), got %dx%d", cfg.View.Width, cfg.View.Height)
	}
	if cfg.View.Duration() != 300*time.Millisecond {
		t.Errorf("expected 300ms, got %v", cfg.View.Duration())
	}
	if cfg.View.InitialCollapse != 2 {
		t.Errorf("expected initial_collapse 2, got %d", cfg.View.InitialCollapse)
	}

	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "maps/processes.json"); cfg.Sources.Paths[0] != want {
		t.Errorf("expected expanded path %q, got %q", want, cfg.Sources.Paths[0])
	}
	if cfg.Sources.Paths[1] != "/absolute/maps.db" {
		t.Errorf("expected absolute path preserved, got %q", cfg.Sources.Paths[1])
	}
	if got := cfg.SourcePaths(); len(got) != 3 || got[2] != filepath.Join(home, "maps") {
		t.Errorf("SourcePaths = %v", got)
	}
	if cfg.Sources.DefaultMap != "processes" {
		t.Errorf("expected default map 'processes', got %q", cfg.Sources.DefaultMap)
	}

	if cfg.WatchEnabled() {
		t.Error("expected watching disabled")
	}
	if cfg.Watch.Debounce() != 100*time.Millisecond {
		t.Errorf("expected 100ms debounce, got %v", cfg.Watch.Debounce())
	}
	if cfg.FavoriteMap(2) != "components" {
		t.Errorf("expected favorite 2 = 'components', got %q", cfg.FavoriteMap(2))
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFrom(path)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
		ok   bool
	}{
		{"defaults", func(*Config) {}, true},
		{"negative size", func(c *Config) { c.View.Height = -1 }, false},
		{"empty zoom extent", func(c *Config) { c.View.MinScale, c.View.MaxScale = 4, 2 }, false},
		{"negative duration", func(c *Config) { c.View.DurationMS = -5 }, false},
		{"favorite out of range", func(c *Config) { c.Favorites[0] = "x" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.edit(&cfg)
			if err := cfg.Validate(); (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestLoadFrom_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("view:\n  min_scale: 9\n  max_scale: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("expected error for an empty zoom extent")
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	off := false
	cfg := DefaultConfig()
	cfg.View.DurationMS = 500
	cfg.Sources.Paths = []string{"/maps/a.json"}
	cfg.Watch.Enabled = &off
	cfg.SetFavorite(1, "a")
	cfg.SetFavorite(3, "b")

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load after save failed: %v", err)
	}

	if loaded.View.DurationMS != 500 {
		t.Errorf("expected 500, got %d", loaded.View.DurationMS)
	}
	if len(loaded.Sources.Paths) != 1 || loaded.Sources.Paths[0] != "/maps/a.json" {
		t.Errorf("paths = %v", loaded.Sources.Paths)
	}
	if loaded.WatchEnabled() {
		t.Error("expected watch disabled after round trip")
	}
	if loaded.Favorites[1] != "a" || loaded.Favorites[3] != "b" {
		t.Errorf("favorites = %v", loaded.Favorites)
	}
}

func TestSetFavorite(t *testing.T) {
	cfg := Config{}

	cfg.SetFavorite(1, "mymap")
	if cfg.Favorites[1] != "mymap" {
		t.Error("expected favorite 1 set to 'mymap'")
	}

	// Clear favorite
	cfg.SetFavorite(1, "")
	if _, ok := cfg.Favorites[1]; ok {
		t.Error("expected favorite 1 to be cleared")
	}
}

func TestMapFavoriteNumber(t *testing.T) {
	cfg := Config{
		Favorites: map[int]string{
			2: "mymap",
			5: "other",
		},
	}

	if n := cfg.MapFavoriteNumber("MYMAP"); n != 2 {
		t.Errorf("expected 2, got %d", n)
	}
	if n := cfg.MapFavoriteNumber("other"); n != 5 {
		t.Errorf("expected 5, got %d", n)
	}
	if n := cfg.MapFavoriteNumber("unknown"); n != 0 {
		t.Errorf("expected 0 for unknown, got %d", n)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"~/foo", filepath.Join(home, "foo")},
		{"~/", filepath.Join(home, "")},
		{"/absolute", "/absolute"},
		{"relative", "relative"},
	}

	for _, tt := range tests {
		got := expandHome(tt.input)
		if got != tt.expected {
			t.Errorf("expandHome(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestConfigDir_XDGOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if got, expected := ConfigDir(), filepath.Join(dir, "mindwork"); got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
	if got, expected := ConfigPath(), filepath.Join(dir, "mindwork", "config.yaml"); got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestStateDir_XDGOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)

	got := StateDir()
	expected := filepath.Join(dir, "mindwork")
	if got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestLoad_UsesXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg := DefaultConfig()
	cfg.Sources.DefaultMap = "xdg"
	if err := Save(cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Sources.DefaultMap != "xdg" {
		t.Errorf("expected default map 'xdg', got %q", loaded.Sources.DefaultMap)
	}
}
