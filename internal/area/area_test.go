package area

import (
	"os"
	"path/filepath"
	"testing"
)

func mkfile(t *testing.T, dir, name string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDetectAreas_SentinelScanRoot(t *testing.T) {
	dir := t.TempDir()
	mkfile(t, dir, "go.mod")

	d := NewDetector()
	areas, err := d.DetectAreas(dir, 200)
	if err != nil {
		t.Fatalf("DetectAreas: %v", err)
	}
	if len(areas) != 1 {
		t.Fatalf("expected 1 area, got %d: %+v", len(areas), areas)
	}
	if areas[0].Language != "go" {
		t.Errorf("Language = %q, want go", areas[0].Language)
	}
	if areas[0].Confidence != ConfidenceHigh {
		t.Errorf("Confidence = %q, want High", areas[0].Confidence)
	}
	if areas[0].Name != "go-area" {
		t.Errorf("Name = %q, want go-area", areas[0].Name)
	}
}

func TestDetectAreas_SentinelScanSubdirs(t *testing.T) {
	dir := t.TempDir()
	mkfile(t, filepath.Join(dir, "backend"), "go.mod")
	mkfile(t, filepath.Join(dir, "frontend"), "package.json")

	d := NewDetector()
	areas, err := d.DetectAreas(dir, 200)
	if err != nil {
		t.Fatalf("DetectAreas: %v", err)
	}
	if len(areas) != 2 {
		t.Fatalf("expected 2 areas, got %d: %+v", len(areas), areas)
	}

	languages := map[string]bool{}
	for _, a := range areas {
		languages[a.Language] = true
	}
	if !languages["go"] || !languages["typescript"] {
		t.Errorf("expected go and typescript areas, got %+v", areas)
	}
}

func TestDetectAreas_ExtensionSamplingFallback(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 12; i++ {
		mkfile(t, dir, filepath.Join("app", "file"+string(rune('a'+i))+".py"))
	}

	d := NewDetector()
	areas, err := d.DetectAreas(dir, 200)
	if err != nil {
		t.Fatalf("DetectAreas: %v", err)
	}
	if len(areas) != 1 {
		t.Fatalf("expected 1 area, got %d: %+v", len(areas), areas)
	}
	if areas[0].Language != "python" {
		t.Errorf("Language = %q, want python", areas[0].Language)
	}
	if areas[0].Confidence != ConfidenceHigh {
		t.Errorf("Confidence = %q, want High (>10 files)", areas[0].Confidence)
	}
}

func TestDetectAreas_EmptyDirFallsBackToUnknown(t *testing.T) {
	dir := t.TempDir()

	d := NewDetector()
	areas, err := d.DetectAreas(dir, 200)
	if err != nil {
		t.Fatalf("DetectAreas: %v", err)
	}
	if len(areas) != 1 || areas[0].Name != "unknown-area" {
		t.Fatalf("expected a single unknown-area, got %+v", areas)
	}
	if areas[0].Confidence != ConfidenceLow {
		t.Errorf("Confidence = %q, want Low", areas[0].Confidence)
	}
}

func TestDetectAreas_CachedByRootAndSampleLimit(t *testing.T) {
	dir := t.TempDir()
	mkfile(t, dir, "go.mod")

	d := NewDetector()
	first, err := d.DetectAreas(dir, 200)
	if err != nil {
		t.Fatalf("DetectAreas: %v", err)
	}

	mkfile(t, dir, "Gemfile")

	second, err := d.DetectAreas(dir, 200)
	if err != nil {
		t.Fatalf("DetectAreas: %v", err)
	}
	if len(second) != len(first) {
		t.Errorf("expected cached result unaffected by new sentinel file, got %+v", second)
	}
}
