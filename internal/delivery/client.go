// Package delivery is the HTTP client for the email/SMS delivery service. A
// send failure surfaces as an error and nothing else: the pending action it
// carried stays pending and the next cycle retries it.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/claimspilot/internal/config"
	"github.com/claimspilot/internal/logging"
	"github.com/claimspilot/internal/retry"
)

// ErrNotConfigured signals a missing delivery endpoint or token
var ErrNotConfigured = errors.New("delivery collaborator is not configured")

// Client talks to the delivery service
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient builds a delivery client from configuration
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.Delivery.BaseURL == "" || cfg.Delivery.Token == "" {
		return nil, ErrNotConfigured
	}

	return &Client{
		baseURL:    cfg.Delivery.BaseURL,
		token:      cfg.Delivery.Token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type emailPayload struct {
	ClaimID   int64  `json:"claim_id"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

type smsPayload struct {
	ClaimID   int64  `json:"claim_id"`
	Recipient string `json:"recipient"`
	Body      string `json:"body"`
}

// SendEmail delivers an email through the delivery service
func (c *Client) SendEmail(ctx context.Context, claimID int64, recipient, subject, body string) error {
	return c.post(ctx, "/v1/email", emailPayload{ClaimID: claimID, Recipient: recipient, Subject: subject, Body: body})
}

// SendSMS delivers an SMS through the delivery service
func (c *Client) SendSMS(ctx context.Context, claimID int64, recipient, body string) error {
	return c.post(ctx, "/v1/sms", smsPayload{ClaimID: claimID, Recipient: recipient, Body: body})
}

func (c *Client) post(ctx context.Context, endpoint string, payload interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	logger := logging.GetCurrentLogger()

	result := retry.RetryWithBackoff(ctx, retry.DeliveryRetryConfig(), func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(jsonData))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("delivery request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return fmt.Errorf("delivery service returned status %d: %s", resp.StatusCode, string(respBody))
		}

		return nil
	}, logger)

	if !result.Success {
		return fmt.Errorf("delivery failed after %d attempts: %w", result.Attempts, result.LastError)
	}

	return nil
}
