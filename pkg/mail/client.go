// Package mail sends transactional email through the Brevo HTTP API.
// Delivery is best effort: callers fire it off in the background and only
// log failures.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const brevoAPIURL = "https://api.brevo.com/v3/smtp/email"

// Client is a minimal Brevo transactional email client.
type Client struct {
	apiKey     string
	fromEmail  string
	fromName   string
	baseURL    string
	httpClient *http.Client
	configured bool
}

// NewClient creates a mail client. The client is only marked configured when
// all three credentials are present; an unconfigured client turns Send into
// an error the caller can log and ignore.
func NewClient(apiKey, fromEmail, fromName string) *Client {
	c := &Client{
		baseURL:    brevoAPIURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	if apiKey != "" && fromEmail != "" && fromName != "" {
		c.apiKey = apiKey
		c.fromEmail = fromEmail
		c.fromName = fromName
		c.configured = true
	}
	return c
}

// IsConfigured reports whether the client holds usable credentials.
func (c *Client) IsConfigured() bool {
	return c.configured
}

type sendEmailReq struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
}

// Send delivers a single HTML email to one recipient.
func (c *Client) Send(ctx context.Context, toEmail, subject, html string) error {
	if !c.configured {
		return fmt.Errorf("mail client not configured, email to %s skipped", toEmail)
	}

	if toEmail == "" || subject == "" || html == "" {
		return errors.New("recipient, subject and body are required")
	}

	reqBody := sendEmailReq{
		Sender:      map[string]string{"email": c.fromEmail, "name": c.fromName},
		To:          []map[string]string{{"email": toEmail}},
		Subject:     subject,
		HTMLContent: html,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal email request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}

	httpReq.Header.Set("api-key", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("email send request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errorBody map[string]interface{}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errorBody); decodeErr != nil {
			return fmt.Errorf("mail API error: status %d", resp.StatusCode)
		}
		return fmt.Errorf("mail API error: status %d, body: %v", resp.StatusCode, errorBody)
	}

	return nil
}

// WelcomeEmail builds the subject and body of the post-registration email.
func WelcomeEmail(username string) (subject, html string) {
	subject = "Welcome to CineLog"
	html = fmt.Sprintf(
		"<html><body><h2>Welcome, %s!</h2>"+
			"<p>Your CineLog account is ready. Start tracking the movies and series you watch.</p>"+
			"</body></html>", username)
	return subject, html
}
