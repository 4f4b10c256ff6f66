// internal/directory/token.go
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"affiliation-validator/internal/common/metrics"
)

// TokenProvider supplies the credential attached to directory calls. Refresh
// discards any cached credential and fetches a new one; the client applies it
// at most once per outer call.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// tokenResponse holds the response from the directory's token endpoint.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// OAuthTokenProvider obtains tokens via the client-credentials flow and
// caches them until expiry.
type OAuthTokenProvider struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewOAuthTokenProvider(tokenURL, clientID, clientSecret string) *OAuthTokenProvider {
	return &OAuthTokenProvider{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Token returns the cached token while valid, fetching otherwise.
func (p *OAuthTokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.accessToken != "" && p.tokenExpiry.After(time.Now()) {
		return p.accessToken, nil
	}
	return p.fetchLocked(ctx)
}

// Refresh drops the cached token and fetches a fresh one.
func (p *OAuthTokenProvider) Refresh(ctx context.Context) (string, error) {
	metrics.TokenRefreshes.Inc()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.accessToken = ""
	return p.fetchLocked(ctx)
}

func (p *OAuthTokenProvider) fetchLocked(ctx context.Context) (string, error) {
	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", p.clientID)
	data.Set("client_secret", p.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	p.accessToken = tokenResp.AccessToken
	p.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)

	return p.accessToken, nil
}

// StaticTokenProvider returns a fixed credential. Refresh is a no-op that
// re-returns the same token; useful for tests and pre-issued keys.
type StaticTokenProvider struct {
	TokenValue string
}

func (p *StaticTokenProvider) Token(ctx context.Context) (string, error) {
	return p.TokenValue, nil
}

func (p *StaticTokenProvider) Refresh(ctx context.Context) (string, error) {
	return p.TokenValue, nil
}
