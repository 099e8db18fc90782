// Package render turns loosely formatted marketing strategy text into HTML
// fragments.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PreviewFilename names an HTML preview file for the given day.
func PreviewFilename(now time.Time) string {
	return fmt.Sprintf("strategy_%s.html", now.UTC().Format("2006-01-02"))
}

// WriteHTMLToFile writes the provided content to a file in the specified directory.
func WriteHTMLToFile(content, outputDir, filename string) (string, error) {
	if outputDir == "" {
		outputDir = "previews" // Default output directory
	}

	err := os.MkdirAll(outputDir, 0755)
	if err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	filePath := filepath.Join(outputDir, filename)

	err = os.WriteFile(filePath, []byte(content), 0644)
	if err != nil {
		return "", fmt.Errorf("failed to write preview file %s: %w", filePath, err)
	}

	return filePath, nil
}
