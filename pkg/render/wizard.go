package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	json "github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/vanderheijden86/mindwork/pkg/config"
)

// WizardConfig holds the answers of the snapshot wizard.
type WizardConfig struct {
	Path   string `json:"path"`
	Format string `json:"format"` // "svg" or "png"
	Title  string `json:"title"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Wizard interactively collects snapshot options.
type Wizard struct {
	config     *WizardConfig
	configPath string
}

// NewWizard creates a snapshot wizard. defaultTitle is usually the map title.
func NewWizard(defaultTitle string) *Wizard {
	cfg := &WizardConfig{
		Path:   "./mindmap.svg",
		Format: "svg",
		Title:  defaultTitle,
		Width:  1200,
		Height: 800,
	}
	if saved, err := LoadWizardConfig(); err == nil && saved != nil {
		cfg.Path = saved.Path
		cfg.Format = saved.Format
		if saved.Width > 0 {
			cfg.Width = saved.Width
		}
		if saved.Height > 0 {
			cfg.Height = saved.Height
		}
	}
	return &Wizard{config: cfg, configPath: WizardConfigPath()}
}

// IsTerminal reports whether stdin is connected to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !IsTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// Run asks for the output path, format and title.
func (w *Wizard) Run() (*WizardConfig, error) {
	fmt.Println("")
	fmt.Println("Snapshot")
	fmt.Println("────────────────────────────")

	format := w.config.Format
	path := w.config.Path
	title := w.config.Title
	size := fmt.Sprintf("%dx%d", w.config.Width, w.config.Height)

	form := newForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Format").
				Options(
					huh.NewOption("SVG (vector)", "svg"),
					huh.NewOption("PNG (raster)", "png"),
				).
				Value(&format),
			huh.NewInput().
				Title("Output file").
				Value(&path).
				Placeholder(w.config.Path),
			huh.NewInput().
				Title("Title").
				Value(&title),
			huh.NewInput().
				Title("Size (WIDTHxHEIGHT)").
				Value(&size).
				Validate(func(s string) error {
					_, _, err := parseSize(s)
					return err
				}),
		),
	)
	if err := form.Run(); err != nil {
		return nil, err
	}

	if path == "" {
		path = w.config.Path
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext != "."+format {
		path = strings.TrimSuffix(path, filepath.Ext(path)) + "." + format
	}
	width, height, _ := parseSize(size)

	w.config.Format = format
	w.config.Path = path
	w.config.Title = title
	w.config.Width = width
	w.config.Height = height

	if err := SaveWizardConfig(w.config); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not save snapshot settings: %v\n", err)
	}
	return w.config, nil
}

func parseSize(s string) (int, int, error) {
	var w, h int
	if _, err := fmt.Sscanf(strings.TrimSpace(strings.ToLower(s)), "%dx%d", &w, &h); err != nil {
		return 0, 0, fmt.Errorf("size must look like 1200x800")
	}
	if w < 64 || h < 64 {
		return 0, 0, fmt.Errorf("size must be at least 64x64")
	}
	return w, h, nil
}

// WizardConfigPath returns the path to the wizard config file.
func WizardConfigPath() string {
	dir := config.StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "snapshot-wizard.json")
}

// LoadWizardConfig loads previously saved wizard answers.
func LoadWizardConfig() (*WizardConfig, error) {
	path := WizardConfigPath()
	if path == "" {
		return nil, fmt.Errorf("could not determine config path")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var config WizardConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveWizardConfig saves wizard answers for future runs.
func SaveWizardConfig(config *WizardConfig) error {
	path := WizardConfigPath()
	if path == "" {
		return fmt.Errorf("could not determine config path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigPath returns where the wizard remembers its answers.
func (w *Wizard) ConfigPath() string { return w.configPath }
