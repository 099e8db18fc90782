package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"vidpulse/internal/pipeline"
)

// MessagePlatform represents different messaging platforms
type MessagePlatform string

const (
	PlatformSlack   MessagePlatform = "slack"
	PlatformDiscord MessagePlatform = "discord"
)

const (
	colorOK      = "#10b981"
	colorFailure = "#dc2626"

	// Limit listed failures to keep messages under platform size limits
	maxListedFailures = 5
)

// SlackMessage represents a Slack message structure
type SlackMessage struct {
	Text        string            `json:"text,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
	Username    string            `json:"username,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
}

// SlackAttachment represents legacy Slack attachments
type SlackAttachment struct {
	Color  string       `json:"color,omitempty"`
	Title  string       `json:"title,omitempty"`
	Text   string       `json:"text,omitempty"`
	Fields []SlackField `json:"fields,omitempty"`
	Footer string       `json:"footer,omitempty"`
	Ts     int64        `json:"ts,omitempty"`
}

// SlackField represents fields in attachments
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// DiscordMessage represents a Discord message structure
type DiscordMessage struct {
	Content  string         `json:"content,omitempty"`
	Username string         `json:"username,omitempty"`
	Embeds   []DiscordEmbed `json:"embeds,omitempty"`
}

// DiscordEmbed represents a Discord embed
type DiscordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []DiscordEmbedField `json:"fields,omitempty"`
	Footer      *DiscordEmbedFooter `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

// DiscordEmbedField represents fields in Discord embeds
type DiscordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// DiscordEmbedFooter represents footer in Discord embeds
type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

// MessagingClient posts tick reports to chat webhooks. It implements pipeline.Notifier.
type MessagingClient struct {
	SlackWebhookURL   string
	DiscordWebhookURL string
	OnlyOnFailure     bool
	HTTPClient        *http.Client
}

// NewMessagingClient creates a new messaging client
func NewMessagingClient(slackURL, discordURL string) *MessagingClient {
	return &MessagingClient{
		SlackWebhookURL:   slackURL,
		DiscordWebhookURL: discordURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Enabled reports whether any webhook is configured
func (c *MessagingClient) Enabled() bool {
	return c.SlackWebhookURL != "" || c.DiscordWebhookURL != ""
}

// NotifyTick posts the report to every configured webhook. Errors from both
// platforms are collected.
func (c *MessagingClient) NotifyTick(ctx context.Context, report *pipeline.TickReport) error {
	if report == nil || !c.Enabled() {
		return nil
	}
	if c.OnlyOnFailure && report.Failed() == 0 && len(report.Anomalies) == 0 {
		return nil
	}

	var result *multierror.Error
	if c.SlackWebhookURL != "" {
		if err := c.SendSlackMessage(ctx, ConvertToSlackMessage(report)); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if c.DiscordWebhookURL != "" {
		if err := c.SendDiscordMessage(ctx, ConvertToDiscordMessage(report)); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func reportTitle(report *pipeline.TickReport) string {
	title := fmt.Sprintf("Tick %02d:00 UTC", report.UTCHour)
	if report.DryRun {
		title += " (dry run)"
	}
	return title
}

func reportSummary(report *pipeline.TickReport) string {
	return fmt.Sprintf("%d users, %d analyses due, %d emails due", report.Users, report.AnalysisDue, report.EmailDue)
}

// failureLines lists the first few failures, then a count of the rest
func failureLines(report *pipeline.TickReport) string {
	if report.Failed() == 0 {
		return ""
	}
	var lines []string
	for i, err := range report.Failures.Errors {
		if i >= maxListedFailures {
			lines = append(lines, fmt.Sprintf("...and %d more", report.Failed()-maxListedFailures))
			break
		}
		lines = append(lines, "• "+err.Error())
	}
	return strings.Join(lines, "\n")
}

func reportCounts(report *pipeline.TickReport) [][2]string {
	return [][2]string{
		{"Analyzed", fmt.Sprintf("%d", report.Analyzed)},
		{"Emailed", fmt.Sprintf("%d", report.Emailed)},
		{"Skipped", fmt.Sprintf("%d", report.Skipped)},
		{"Failed", fmt.Sprintf("%d", report.Failed())},
		{"Anomalies", fmt.Sprintf("%d", len(report.Anomalies))},
	}
}

// ConvertToSlackMessage converts a tick report to Slack message format
func ConvertToSlackMessage(report *pipeline.TickReport) *SlackMessage {
	color := colorOK
	if report.Failed() > 0 {
		color = colorFailure
	}

	var fields []SlackField
	for _, kv := range reportCounts(report) {
		fields = append(fields, SlackField{Title: kv[0], Value: kv[1], Short: true})
	}
	if failures := failureLines(report); failures != "" {
		fields = append(fields, SlackField{Title: "Failures", Value: failures, Short: false})
	}

	return &SlackMessage{
		Text:      reportTitle(report),
		Username:  "Vidpulse",
		IconEmoji: ":chart_with_upwards_trend:",
		Attachments: []SlackAttachment{
			{
				Color:  color,
				Title:  reportTitle(report),
				Text:   reportSummary(report),
				Fields: fields,
				Footer: "run " + report.RunID,
				Ts:     report.FinishedAt.Unix(),
			},
		},
	}
}

// ConvertToDiscordMessage converts a tick report to Discord message format
func ConvertToDiscordMessage(report *pipeline.TickReport) *DiscordMessage {
	color := 0x10b981
	if report.Failed() > 0 {
		color = 0xdc2626
	}

	var fields []DiscordEmbedField
	for _, kv := range reportCounts(report) {
		fields = append(fields, DiscordEmbedField{Name: kv[0], Value: kv[1], Inline: true})
	}
	if failures := failureLines(report); failures != "" {
		fields = append(fields, DiscordEmbedField{Name: "Failures", Value: failures})
	}

	return &DiscordMessage{
		Username: "Vidpulse",
		Embeds: []DiscordEmbed{
			{
				Title:       reportTitle(report),
				Description: reportSummary(report),
				Color:       color,
				Fields:      fields,
				Footer:      &DiscordEmbedFooter{Text: "run " + report.RunID},
				Timestamp:   report.FinishedAt.Format(time.RFC3339),
			},
		},
	}
}

// SendSlackMessage sends a message to Slack webhook
func (c *MessagingClient) SendSlackMessage(ctx context.Context, message *SlackMessage) error {
	if c.SlackWebhookURL == "" {
		return fmt.Errorf("slack webhook URL not configured")
	}
	return c.post(ctx, PlatformSlack, c.SlackWebhookURL, message)
}

// SendDiscordMessage sends a message to Discord webhook
func (c *MessagingClient) SendDiscordMessage(ctx context.Context, message *DiscordMessage) error {
	if c.DiscordWebhookURL == "" {
		return fmt.Errorf("discord webhook URL not configured")
	}
	return c.post(ctx, PlatformDiscord, c.DiscordWebhookURL, message)
}

func (c *MessagingClient) post(ctx context.Context, platform MessagePlatform, url string, message any) error {
	jsonData, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", platform, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", platform, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s message: %w", platform, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Discord answers 204 on success
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s webhook returned status %d: %s", platform, resp.StatusCode, string(body))
	}

	return nil
}

// ValidateWebhookURL validates if a webhook URL is properly formatted
func ValidateWebhookURL(platform MessagePlatform, url string) error {
	if url == "" {
		return fmt.Errorf("%s webhook URL cannot be empty", platform)
	}

	switch platform {
	case PlatformSlack:
		if !strings.Contains(url, "hooks.slack.com") {
			return fmt.Errorf("invalid Slack webhook URL format")
		}
	case PlatformDiscord:
		if !strings.Contains(url, "discord.com/api/webhooks") {
			return fmt.Errorf("invalid Discord webhook URL format")
		}
	default:
		return fmt.Errorf("unknown platform: %s", platform)
	}

	return nil
}
