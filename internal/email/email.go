package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"vidpulse/internal/core"
	"vidpulse/internal/render"
)

// DefaultSubject is used when no subject template is configured.
const DefaultSubject = "Your Marketing Strategy Report"

// EmailTemplate represents an HTML email template configuration
type EmailTemplate struct {
	Name            string
	Subject         string
	IncludeCSS      bool
	HeaderColor     string
	BackgroundColor string
	TextColor       string
	LinkColor       string
	BorderColor     string
	MaxWidth        string
	FontFamily      string
}

// StrategyEmailData contains all data needed for email rendering
type StrategyEmailData struct {
	Title         string
	Date          string
	QueryCount    int
	VideosCount   int
	SearchQueries []string
	Sections      template.HTML // assembled strategy body, already escaped
}

// GetDefaultEmailTemplate returns a modern, responsive HTML email template
func GetDefaultEmailTemplate() *EmailTemplate {
	return &EmailTemplate{
		Name:            "default",
		Subject:         DefaultSubject,
		IncludeCSS:      true,
		HeaderColor:     "#2563eb", // Blue-600
		BackgroundColor: "#f8fafc", // Slate-50
		TextColor:       "#1e293b", // Slate-800
		LinkColor:       "#3b82f6", // Blue-500
		BorderColor:     "#e2e8f0", // Slate-200
		MaxWidth:        "600px",
		FontFamily:      "system-ui, -apple-system, 'Segoe UI', Roboto, sans-serif",
	}
}

// GetMinimalEmailTemplate returns a clean, minimal email template
func GetMinimalEmailTemplate() *EmailTemplate {
	return &EmailTemplate{
		Name:            "minimal",
		Subject:         DefaultSubject,
		IncludeCSS:      true,
		HeaderColor:     "#374151", // Gray-700
		BackgroundColor: "#ffffff", // White
		TextColor:       "#111827", // Gray-900
		LinkColor:       "#6366f1", // Indigo-500
		BorderColor:     "#e5e7eb", // Gray-200
		MaxWidth:        "560px",
		FontFamily:      "Inter, system-ui, sans-serif",
	}
}

// GetTemplate looks up a template by name, falling back to the default.
func GetTemplate(name string) *EmailTemplate {
	if strings.EqualFold(name, "minimal") {
		return GetMinimalEmailTemplate()
	}
	return GetDefaultEmailTemplate()
}

// getEmailCSS returns responsive CSS for the email template
func getEmailCSS(tmpl *EmailTemplate) string {
	return fmt.Sprintf(`
<style type="text/css">
  body, table, td, p, a, li {
    -webkit-text-size-adjust: 100%%;
    -ms-text-size-adjust: 100%%;
  }
  body {
    margin: 0 !important;
    padding: 0 !important;
    background-color: %s;
    font-family: %s;
    color: %s;
    line-height: 1.6;
  }
  .container {
    max-width: %s;
    margin: 0 auto;
    background-color: #ffffff;
    border: 1px solid %s;
    border-radius: 8px;
    overflow: hidden;
  }
  .header {
    background-color: %s;
    color: #ffffff;
    padding: 24px;
    text-align: center;
  }
  .header h1 {
    margin: 0;
    font-size: 24px;
    font-weight: 600;
  }
  .header .date {
    margin: 8px 0 0 0;
    font-size: 14px;
    opacity: 0.9;
  }
  .content {
    padding: 24px;
  }
  h2 {
    color: %s;
    font-size: 20px;
    font-weight: 600;
    margin: 32px 0 16px 0;
    border-bottom: 2px solid %s;
    padding-bottom: 8px;
  }
  h3 {
    color: %s;
    font-size: 18px;
    font-weight: 600;
    margin: 24px 0 12px 0;
  }
  h4 {
    color: %s;
    font-size: 16px;
    font-weight: 600;
    margin: 20px 0 8px 0;
  }
  p, li {
    font-size: 16px;
    line-height: 1.6;
  }
  a {
    color: %s;
    text-decoration: none;
  }
  .stats {
    background-color: #f8fafc;
    border: 1px solid %s;
    border-radius: 6px;
    padding: 12px 20px;
  }
  .footer {
    background-color: #f1f5f9;
    padding: 20px 24px;
    text-align: center;
    font-size: 14px;
    color: #64748b;
    border-top: 1px solid %s;
  }
  @media only screen and (max-width: 600px) {
    .container {
      margin: 0 !important;
      border-radius: 0 !important;
    }
    .content {
      padding: 16px !important;
    }
    h2 {
      font-size: 18px !important;
    }
  }
</style>
`,
		tmpl.BackgroundColor, tmpl.FontFamily, tmpl.TextColor, tmpl.MaxWidth,
		tmpl.BorderColor, tmpl.HeaderColor, tmpl.HeaderColor, tmpl.BorderColor,
		tmpl.TextColor, tmpl.TextColor, tmpl.LinkColor, tmpl.BorderColor,
		tmpl.BorderColor)
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Data.Title}}</title>
    {{if .Template.IncludeCSS}}{{.CSS}}{{end}}
</head>
<body>
    <table role="presentation" cellspacing="0" cellpadding="0" border="0" width="100%">
        <tr>
            <td align="center">
                <div class="container">
                    <div class="header">
                        <h1>{{.Data.Title}}</h1>
                        <p class="date">{{.Data.Date}}</p>
                    </div>
                    <div class="content">
                        <div class="stats">
                            <ul>
                                <li><strong>Search queries analyzed:</strong> {{.Data.QueryCount}}</li>
                                <li><strong>Videos analyzed:</strong> {{.Data.VideosCount}}</li>
                            </ul>
                        </div>
                        <h2>Marketing Strategy</h2>
                        {{.Data.Sections}}
                    </div>
                    <div class="footer">
                        <p>This report was generated from trending videos in your niche.</p>
                        <p style="font-size: 12px; margin-top: 8px;">
                            You are receiving this email because strategy reports are enabled for your account.
                        </p>
                    </div>
                </div>
            </td>
        </tr>
    </table>
</body>
</html>`

// NewStrategyEmailData assembles the strategy body and page stats for result.
func NewStrategyEmailData(result core.AnalysisResult, now time.Time) StrategyEmailData {
	return StrategyEmailData{
		Title:         DefaultSubject,
		Date:          now.Format("January 2, 2006"),
		QueryCount:    len(result.SearchQueries),
		VideosCount:   result.VideosCount,
		SearchQueries: result.SearchQueries,
		Sections:      template.HTML(render.Assemble(result.MarketingStrategy)),
	}
}

// RenderStrategyEmail renders the full HTML page sent to a user.
func RenderStrategyEmail(data StrategyEmailData, emailTemplate *EmailTemplate) (string, error) {
	if emailTemplate == nil {
		emailTemplate = GetDefaultEmailTemplate()
	}

	tmpl, err := template.New("email").Parse(pageTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse email template: %w", err)
	}

	templateData := struct {
		Data     StrategyEmailData
		Template *EmailTemplate
		CSS      template.HTML
	}{
		Data:     data,
		Template: emailTemplate,
		CSS:      template.HTML(getEmailCSS(emailTemplate)),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, templateData); err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}

	return buf.String(), nil
}

// GenerateSubject generates email subject using template. Subjects are plain
// text, so nothing is HTML-escaped.
func GenerateSubject(emailTemplate *EmailTemplate, title string, date string) (string, error) {
	tmpl, err := texttemplate.New("subject").Parse(emailTemplate.Subject)
	if err != nil {
		return "", fmt.Errorf("failed to parse subject template: %w", err)
	}

	data := struct {
		Title string
		Date  string
	}{
		Title: title,
		Date:  date,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute subject template: %w", err)
	}

	return buf.String(), nil
}

// WriteHTMLEmail writes HTML email content to file
func WriteHTMLEmail(content string, outputDir string, filename string) (string, error) {
	if !strings.HasSuffix(filename, ".html") {
		filename = strings.TrimSuffix(filename, ".json") + ".html"
	}

	return render.WriteHTMLToFile(content, outputDir, filename)
}
