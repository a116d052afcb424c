package render

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func settledFrame() Frame {
	return Interpolate(sampleTransition(), 1)
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		format, path      string
		wantFmt, wantPath string
		wantErr           bool
	}{
		{"", "out.svg", "svg", "out.svg", false},
		{"", "out.PNG", "png", "out.PNG", false},
		{"", "out", "svg", "out.svg", false},
		{".png", "x.img", "png", "x.img", false},
		{"pdf", "x.pdf", "", "", true},
		{"svg", "", "", "", true},
	}
	for _, tt := range tests {
		f, p, err := resolveFormat(tt.format, tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("resolveFormat(%q,%q) err = %v", tt.format, tt.path, err)
			continue
		}
		if !tt.wantErr && (f != tt.wantFmt || p != tt.wantPath) {
			t.Errorf("resolveFormat(%q,%q) = %q,%q", tt.format, tt.path, f, p)
		}
	}
}

func TestSaveSnapshotSVG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "map.svg")
	err := SaveSnapshot(SnapshotOptions{
		Path:        path,
		Title:       "Processes",
		Breadcrumbs: []string{"root"},
		Frame:       settledFrame(),
	})
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	svg := string(data)
	for _, want := range []string{"<svg", "Processes", ">root<", ">a<", "<circle"} {
		if !strings.Contains(svg, want) {
			t.Errorf("svg missing %q", want)
		}
	}
}

func TestSaveSnapshotPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.png")
	if err := SaveSnapshot(SnapshotOptions{Path: path, Frame: settledFrame(), Width: 800, Height: 600}); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 800 || b.Dy() != 600 {
		t.Errorf("png size %v", b)
	}
}

func TestSaveSnapshotEmptyFrame(t *testing.T) {
	if err := SaveSnapshot(SnapshotOptions{Path: filepath.Join(t.TempDir(), "x.svg")}); err == nil {
		t.Error("expected error for empty frame")
	}
}

func TestSVGCollapsedFill(t *testing.T) {
	f := settledFrame()
	f.Nodes[0].HasHiddenChildren = true
	var buf bytes.Buffer
	if err := renderSVGToWriter(&buf, buildScene(SnapshotOptions{Frame: f})); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), css(colorCollapsed)) {
		t.Error("collapsed node not filled lightsteelblue")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefgh", 6); got != "abc..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abc", 6); got != "abc" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("abcdef", 2); got != "ab" {
		t.Errorf("truncate tiny = %q", got)
	}
}
