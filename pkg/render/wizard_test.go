package render

import "testing"

func TestParseSize(t *testing.T) {
	tests := []struct {
		in     string
		w, h   int
		wantOK bool
	}{
		{"1200x800", 1200, 800, true},
		{" 640X480 ", 640, 480, true},
		{"32x32", 0, 0, false},
		{"wide", 0, 0, false},
	}
	for _, tt := range tests {
		w, h, err := parseSize(tt.in)
		if (err == nil) != tt.wantOK {
			t.Errorf("parseSize(%q) err = %v", tt.in, err)
			continue
		}
		if tt.wantOK && (w != tt.w || h != tt.h) {
			t.Errorf("parseSize(%q) = %dx%d", tt.in, w, h)
		}
	}
}

func TestWizardConfigRoundTrip(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	if cfg, err := LoadWizardConfig(); err != nil || cfg != nil {
		t.Fatalf("fresh load = %v, %v", cfg, err)
	}
	want := &WizardConfig{Path: "/tmp/x.png", Format: "png", Width: 900, Height: 700}
	if err := SaveWizardConfig(want); err != nil {
		t.Fatal(err)
	}
	got, err := LoadWizardConfig()
	if err != nil {
		t.Fatal(err)
	}
	if *got != *want {
		t.Errorf("loaded %+v, want %+v", got, want)
	}

	w := NewWizard("Processes")
	if w.config.Format != "png" || w.config.Width != 900 || w.config.Title != "Processes" {
		t.Errorf("wizard defaults not restored: %+v", w.config)
	}
}
