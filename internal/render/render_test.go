package render

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteHTMLToFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := "<h3>Observations</h3><p>Short videos win</p>"

	filePath, err := WriteHTMLToFile(content, tmpDir, "preview.html")
	if err != nil {
		t.Fatalf("WriteHTMLToFile failed: %v", err)
	}

	expectedPath := filepath.Join(tmpDir, "preview.html")
	if filePath != expectedPath {
		t.Errorf("Expected path %s, got %s", expectedPath, filePath)
	}

	written, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("Failed to read preview file: %v", err)
	}
	if string(written) != content {
		t.Errorf("Expected content %q, got %q", content, string(written))
	}
}

func TestWriteHTMLToFile_CreatesDirectory(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "nested", "previews")

	filePath, err := WriteHTMLToFile("<p>x</p>", outputDir, "a.html")
	if err != nil {
		t.Fatalf("WriteHTMLToFile failed: %v", err)
	}
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		t.Error("Preview file should be created")
	}
}

func TestPreviewFilename(t *testing.T) {
	now := time.Date(2026, 10, 18, 23, 30, 0, 0, time.FixedZone("X", -5*3600))

	// 23:30 at UTC-5 is already the 19th in UTC.
	if got := PreviewFilename(now); got != "strategy_2026-10-19.html" {
		t.Errorf("Expected strategy_2026-10-19.html, got %s", got)
	}
}
