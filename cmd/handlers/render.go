package handlers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"vidpulse/internal/core"
	"vidpulse/internal/email"
	"vidpulse/internal/logger"
	"vidpulse/internal/render"
)

// NewRenderCmd creates the render command that previews a strategy email
func NewRenderCmd() *cobra.Command {
	var (
		outputDir    string
		templateName string
	)

	cmd := &cobra.Command{
		Use:   "render <analysis.json>",
		Short: "Render a stored analysis result into an HTML email preview",
		Long: `Read an analysis result (the analysis endpoint response, or a bare
marketingStrategy object) and write the email that would be sent for it.

No configuration or database is needed.

Examples:
  vidpulse render result.json
  vidpulse render result.json --output previews --template minimal`,
		Args: cobra.ExactArgs(1),
		// Rendering needs no configuration; only set up default logging.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Setup("info", "console")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := runRender(args[0], outputDir, templateName, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Preview written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "previews", "Output directory")
	cmd.Flags().StringVar(&templateName, "template", "default", "Email template (default, minimal)")

	return cmd
}

func runRender(inputPath, outputDir, templateName string, now time.Time) (string, error) {
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", inputPath, err)
	}

	result, err := decodeAnalysis(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", inputPath, err)
	}

	data := email.NewStrategyEmailData(result, now)
	page, err := email.RenderStrategyEmail(data, email.GetTemplate(templateName))
	if err != nil {
		return "", err
	}

	filename := filepath.Base(inputPath)
	if filepath.Ext(filename) != ".json" {
		filename = render.PreviewFilename(now)
	}
	return email.WriteHTMLEmail(page, outputDir, filename)
}

// decodeAnalysis accepts a full analysis result or a bare strategy document
func decodeAnalysis(raw []byte) (core.AnalysisResult, error) {
	var result core.AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, err
	}
	if result.MarketingStrategy != nil {
		return result, nil
	}

	var doc core.StrategyDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return result, err
	}
	delete(doc, "searchQueries")
	delete(doc, "videosCount")
	result.MarketingStrategy = doc
	return result, nil
}
