package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vidpulse/internal/core"
	"vidpulse/internal/logger"
)

// DefaultBrevoBaseURL is the transactional email API root.
const DefaultBrevoBaseURL = "https://api.brevo.com/v3"

// APIError is a non-2xx response from the email API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("email API returned status %d: %s", e.StatusCode, e.Body)
}

// brevoMessage is the transactional email request body.
type brevoMessage struct {
	Sender      core.Contact   `json:"sender"`
	To          []core.Contact `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

// BrevoResponse is the body of a successful send.
type BrevoResponse struct {
	MessageID string `json:"messageId"`
}

// BrevoClient sends transactional email through the Brevo API.
type BrevoClient struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewBrevoClient creates a new email client
func NewBrevoClient(apiKey, baseURL string, timeout time.Duration) *BrevoClient {
	if baseURL == "" {
		baseURL = DefaultBrevoBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BrevoClient{
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send delivers msg and returns the provider's message id.
func (c *BrevoClient) Send(ctx context.Context, msg core.EmailMessage) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("email API key not configured")
	}
	if msg.To.Email == "" {
		return "", fmt.Errorf("recipient email cannot be empty")
	}

	jsonData, err := json.Marshal(brevoMessage{
		Sender:      msg.Sender,
		To:          []core.Contact{msg.To},
		Subject:     msg.Subject,
		HTMLContent: msg.HTMLContent,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/smtp/email", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if readErr != nil {
			return "", fmt.Errorf("email API returned status %d, failed to read body: %w", resp.StatusCode, readErr)
		}
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	// The email is accepted once the API answers 2xx. A receipt we cannot
	// read only loses the message ID.
	if readErr != nil {
		logger.Warn("Email accepted but response unreadable", "to", msg.To.Email, "error", readErr.Error())
		return "", nil
	}
	var out BrevoResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			logger.Warn("Email accepted but response undecodable", "to", msg.To.Email, "error", err.Error())
			return "", nil
		}
	}
	return out.MessageID, nil
}
