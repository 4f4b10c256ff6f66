// internal/renderer/client.go

// Package renderer is the client for the external document renderer: it
// accepts a finished payload and returns document bytes. Layout and
// typesetting live entirely on the other side of this boundary.
package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"affiliation-validator/internal/common/config"
	stderrors "affiliation-validator/internal/common/errors"
	"affiliation-validator/internal/models"
	"affiliation-validator/internal/pricing"
)

// Payload is the assembled outcome document sent to the renderer.
type Payload struct {
	OrganizationID   string                  `json:"organizationId"`
	OrganizationName string                  `json:"organizationName"`
	Members          []models.ChecklistEntry `json:"members"`
	Quote            pricing.Quote           `json:"quote"`
	GeneratedAt      time.Time               `json:"generatedAt"`
}

// Renderer produces document bytes from a finished payload.
type Renderer interface {
	Render(ctx context.Context, payload *Payload) ([]byte, error)
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg config.RendererConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Millisecond,
		},
	}
}

func (c *Client) Render(ctx context.Context, payload *Payload) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal render payload: %w", err)
	}

	url := fmt.Sprintf("%s/render", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// The upstream body rides along in Details for internal logging.
		// Error() prints only the code and status, so callers can surface
		// the error string without leaking renderer internals.
		return nil, stderrors.NewGenerationFailureError(resp.StatusCode, string(body))
	}

	if len(body) == 0 {
		return nil, fmt.Errorf("renderer returned an empty document")
	}

	return body, nil
}
