package tokens

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// RefreshClient refreshes tokens through the proxy's /api/auth/refresh
// endpoint, which holds the OAuth client secret.
type RefreshClient struct {
	serverURL  string
	httpClient *http.Client
}

func NewRefreshClient(serverURL string) *RefreshClient {
	return &RefreshClient{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *RefreshClient) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return "", 0, fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/api/auth/refresh", bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   int64  `json:"expires_at"`
		Error       string `json:"error"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&out)

	if resp.StatusCode != http.StatusOK {
		if out.Error != "" {
			return "", 0, fmt.Errorf("refresh rejected (HTTP %d): %s", resp.StatusCode, out.Error)
		}
		return "", 0, fmt.Errorf("refresh rejected: HTTP %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return "", 0, fmt.Errorf("decoding response: %w", decodeErr)
	}
	return out.AccessToken, out.ExpiresAt, nil
}
