// internal/directory/client.go

// Package directory implements the client for the external identity
// directory. Every call attaches the provider's credential; an authorization
// failure is refreshable exactly once per call, a second failure is terminal
// for that call.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"affiliation-validator/internal/common/config"
	"affiliation-validator/internal/common/errors"
	"affiliation-validator/internal/common/logger"
	"affiliation-validator/internal/common/metrics"
	"affiliation-validator/internal/models"
)

// API is the surface the resolver consumes.
type API interface {
	SearchPeople(ctx context.Context, lookupID string) ([]models.DirectoryCandidate, error)
	GetPerson(ctx context.Context, personID string) (*models.DirectoryCandidate, error)
	GetAffiliations(ctx context.Context, personID string) ([]models.AffiliationCode, error)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenProvider
	logger     logger.Logger
}

func NewClient(cfg config.DirectoryConfig, tokens TokenProvider, log logger.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Millisecond,
		},
		tokens: tokens,
		logger: log.WithFields(map[string]interface{}{"component": "directory"}),
	}
}

// SearchPeople runs a strict search by lookup id. The caller is expected to
// sanitize the id first.
func (c *Client) SearchPeople(ctx context.Context, lookupID string) ([]models.DirectoryCandidate, error) {
	var result struct {
		Results []models.DirectoryCandidate `json:"results"`
	}

	path := fmt.Sprintf("/people/search?lookup_id=%s", url.QueryEscape(lookupID))
	if err := c.getJSON(ctx, "search", path, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

// GetPerson fetches the full record for one directory entity, including the
// birth date when the directory holds one.
func (c *Client) GetPerson(ctx context.Context, personID string) (*models.DirectoryCandidate, error) {
	var person models.DirectoryCandidate
	path := fmt.Sprintf("/people/%s", url.PathEscape(personID))
	if err := c.getJSON(ctx, "get_person", path, &person); err != nil {
		return nil, err
	}
	return &person, nil
}

// GetAffiliations fetches the affiliation codes for one directory entity.
func (c *Client) GetAffiliations(ctx context.Context, personID string) ([]models.AffiliationCode, error) {
	var result struct {
		Codes []models.AffiliationCode `json:"codes"`
	}

	path := fmt.Sprintf("/people/%s/affiliations", url.PathEscape(personID))
	if err := c.getJSON(ctx, "get_affiliations", path, &result); err != nil {
		return nil, err
	}
	return result.Codes, nil
}

// getJSON issues a GET with the current credential. On 401 it refreshes the
// token and retries once; any second 401 is terminal for this call.
func (c *Client) getJSON(ctx context.Context, operation, path string, out interface{}) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		metrics.DirectoryCalls.WithLabelValues(operation, "token_error").Inc()
		return errors.NewDirectoryUnauthorizedError(err.Error())
	}

	status, body, err := c.do(ctx, path, token)
	if err != nil {
		metrics.DirectoryCalls.WithLabelValues(operation, "network_error").Inc()
		return errors.NewDirectoryUpstreamError(0, err.Error())
	}

	if status == http.StatusUnauthorized {
		c.logger.Warn("directory rejected credentials, refreshing token", map[string]interface{}{
			"operation": operation,
		})

		token, err = c.tokens.Refresh(ctx)
		if err != nil {
			metrics.DirectoryCalls.WithLabelValues(operation, "unauthorized").Inc()
			return errors.NewDirectoryUnauthorizedError(err.Error())
		}

		status, body, err = c.do(ctx, path, token)
		if err != nil {
			metrics.DirectoryCalls.WithLabelValues(operation, "network_error").Inc()
			return errors.NewDirectoryUpstreamError(0, err.Error())
		}
		if status == http.StatusUnauthorized {
			metrics.DirectoryCalls.WithLabelValues(operation, "unauthorized").Inc()
			return errors.NewDirectoryUnauthorizedError("401 after token refresh")
		}
	}

	if status != http.StatusOK {
		metrics.DirectoryCalls.WithLabelValues(operation, "upstream_error").Inc()
		return errors.NewDirectoryUpstreamError(status, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		metrics.DirectoryCalls.WithLabelValues(operation, "decode_error").Inc()
		return errors.NewDirectoryUpstreamError(status, fmt.Sprintf("failed to decode response: %v", err))
	}

	metrics.DirectoryCalls.WithLabelValues(operation, "ok").Inc()
	return nil
}

func (c *Client) do(ctx context.Context, path, token string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return resp.StatusCode, body, nil
}
