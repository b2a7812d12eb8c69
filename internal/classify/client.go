// Package classify is the HTTP client for the document classification
// service. A failed classification leaves the document unclassified; the next
// triage batch picks it up again.
package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/claimspilot/internal/agent"
	"github.com/claimspilot/internal/config"
)

// ErrNotConfigured signals a missing classifier endpoint
var ErrNotConfigured = errors.New("classification collaborator is not configured")

// Client talks to the classification service
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient builds a classifier client from configuration
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.Classifier.BaseURL == "" {
		return nil, ErrNotConfigured
	}

	return &Client{
		baseURL:    cfg.Classifier.BaseURL,
		token:      cfg.Classifier.Token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type classifyResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// ClassifyDocument asks the classifier for a label and confidence
func (c *Client) ClassifyDocument(ctx context.Context, fileID string) (*agent.Classification, error) {
	endpoint := c.baseURL + "/v1/classify/" + url.PathEscape(fileID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("classification service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode classification response: %w", err)
	}
	if result.Label == "" {
		return nil, fmt.Errorf("classification response missing label")
	}

	return &agent.Classification{Label: result.Label, Confidence: result.Confidence}, nil
}
