// internal/auth/identity.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"taqyim/internal/common/config"
	apperrors "taqyim/internal/common/errors"
	"taqyim/internal/common/httpclient"
)

// IdentityClient talks to the hosted OpenID Connect provider that holds the
// actual credentials. The admin service only exchanges a username/password for
// a token to confirm identity, then runs its own Redis-backed session.
type IdentityClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *httpclient.Client
}

// TokenResponse is the provider's token endpoint payload.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
	TokenType        string `json:"token_type"`
	RefreshToken     string `json:"refresh_token"`
	Scope            string `json:"scope"`
}

func NewIdentityClient(cfg config.AuthConfig) *IdentityClient {
	return &IdentityClient{
		baseURL:      strings.TrimSuffix(cfg.Provider.URL, "/"),
		realm:        cfg.Provider.Realm,
		clientID:     cfg.Provider.ClientID,
		clientSecret: cfg.Provider.ClientSecret,
		httpClient:   httpclient.NewClient(httpclient.DefaultTimeout),
	}
}

// Authenticate exchanges credentials for a token via the password grant. A
// rejected exchange means the credentials are wrong; transport failures are
// surfaced as retryable store errors so callers can distinguish them.
func (c *IdentityClient) Authenticate(ctx context.Context, username, password string) (*TokenResponse, error) {
	tokenURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", c.baseURL, c.realm)

	data := url.Values{}
	data.Set("grant_type", "password")
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("username", username)
	data.Set("password", password)

	resp, err := c.httpClient.PostForm(ctx, tokenURL, data)
	if err != nil {
		return nil, &apperrors.StandardError{
			Code:      apperrors.ErrCodeAuthenticationFailed,
			Message:   "Identity provider unreachable",
			Details:   err.Error(),
			Retryable: true,
			Timestamp: time.Now().UTC(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		return nil, apperrors.NewAuthenticationError("invalid credentials")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("identity token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	return &tokenResp, nil
}
